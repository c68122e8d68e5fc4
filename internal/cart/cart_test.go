package cart

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/cafebloom/internal/model"
)

var (
	salad  = model.MenuItem{ID: "a", Name: "Mediterranean Salad", Price: 1099, Category: model.CategoryStarters}
	coffee = model.MenuItem{ID: "b", Name: "Cappuccino", Price: 499, Category: model.CategoryDrinks}
)

func TestAddSameItemKeepsSingleLine(t *testing.T) {
	c := New()
	for i := 0; i < 7; i++ {
		c.Add(salad)
	}

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.Equal(t, 7, c.TotalItems())
}

func TestCheckoutScenario(t *testing.T) {
	c := New()
	c.Add(salad)
	c.Add(salad)
	c.Add(coffee)

	assert.Equal(t, 3, c.TotalItems())
	assert.Equal(t, model.Money(2697), c.TotalPrice())
	assert.Equal(t, "26.97", c.TotalPrice().String())

	c.SetQuantity(salad.ID, 0)
	assert.Equal(t, 1, c.TotalItems())
	assert.Equal(t, model.Money(499), c.TotalPrice())

	c.Clear()
	assert.Equal(t, 0, c.TotalItems())
	assert.Equal(t, model.Money(0), c.TotalPrice())
	assert.True(t, c.Empty())
}

func TestSetQuantity(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		wantLines int
		wantItems int
	}{
		{name: "replaces value", quantity: 5, wantLines: 2, wantItems: 6},
		{name: "zero removes", quantity: 0, wantLines: 1, wantItems: 1},
		{name: "negative removes", quantity: -3, wantLines: 1, wantItems: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.Add(salad)
			c.Add(salad)
			c.Add(coffee)

			c.SetQuantity(salad.ID, tt.quantity)

			assert.Len(t, c.Lines(), tt.wantLines)
			assert.Equal(t, tt.wantItems, c.TotalItems())
			for _, l := range c.Lines() {
				assert.Positive(t, l.Quantity)
			}
		})
	}
}

func TestSetQuantityZeroEqualsRemove(t *testing.T) {
	a := New()
	b := New()
	for _, c := range []*Cart{a, b} {
		c.Add(salad)
		c.Add(coffee)
		c.Add(coffee)
	}

	a.SetQuantity(coffee.ID, 0)
	b.Remove(coffee.ID)

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, salad.Price, a.TotalPrice())
}

func TestRemoveAndSetQuantityOnMissingItemAreNoops(t *testing.T) {
	c := New()
	c.Add(salad)

	c.Remove("missing")
	c.SetQuantity("missing", 4)

	assert.Equal(t, 1, c.TotalItems())
	assert.Len(t, c.Lines(), 1)
}

func TestTotalPriceHasNoDrift(t *testing.T) {
	c := New()
	c.Add(coffee)
	before := c.TotalPrice()

	odd := model.MenuItem{ID: "c", Price: model.MoneyFromFloat(0.1)}
	for i := 0; i < 1000; i++ {
		c.Add(odd)
		c.Add(salad)
		c.Remove(odd.ID)
		c.SetQuantity(salad.ID, 0)
	}

	assert.Equal(t, before, c.TotalPrice())
}

func TestTotalsSumQuantitiesNotLines(t *testing.T) {
	c := New()
	c.Add(salad)
	c.SetQuantity(salad.ID, 4)
	c.Add(coffee)
	c.Add(coffee)

	assert.Len(t, c.Lines(), 2)
	assert.Equal(t, 6, c.TotalItems())
	assert.Equal(t, salad.Price.Mul(4)+coffee.Price.Mul(2), c.TotalPrice())
}

func TestDrawerVisibility(t *testing.T) {
	c := New()
	assert.False(t, c.IsOpen())

	c.Add(salad)
	assert.False(t, c.IsOpen(), "adding an item must not open the drawer")

	c.Toggle()
	assert.True(t, c.IsOpen())
	c.Clear()
	assert.True(t, c.IsOpen(), "clearing lines must not close the drawer")

	c.Toggle()
	assert.False(t, c.IsOpen())
	c.Open()
	c.Open()
	assert.True(t, c.IsOpen())
	c.Close()
	assert.False(t, c.IsOpen())
}

func TestLinesReturnsCopy(t *testing.T) {
	c := New()
	c.Add(salad)

	lines := c.Lines()
	lines[0].Quantity = 100

	assert.Equal(t, 1, c.TotalItems())
}

func TestConcurrentAdds(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(salad)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 50, snap.TotalItems)
	assert.Equal(t, salad.Price.Mul(50), snap.TotalPrice)
}

func TestSubtractKeepsLinesAddedLater(t *testing.T) {
	c := New()
	c.Add(salad)
	c.Add(salad)
	ordered := c.Lines()

	c.Add(salad)
	c.Add(coffee)
	c.Subtract(ordered)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, salad.ID, lines[0].ID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, coffee.ID, lines[1].ID)
	assert.Equal(t, 1, lines[1].Quantity)

	c.Subtract(c.Lines())
	assert.True(t, c.Empty())
}
