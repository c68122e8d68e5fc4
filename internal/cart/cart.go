// Package cart реализует корзину покупателя в рамках сеанса просмотра.
package cart

import (
	"sync"

	"github.com/mmeshcher/cafebloom/internal/model"
)

// Cart хранит строки корзины и признак открытой панели корзины.
// Все операции атомарны для вызывающего.
type Cart struct {
	mu    sync.Mutex
	lines []model.CartLine
	open  bool
}

// Snapshot содержит согласованное состояние корзины на момент чтения.
type Snapshot struct {
	Lines      []model.CartLine `json:"items"`
	TotalItems int              `json:"total_items"`
	TotalPrice model.Money      `json:"total_price"`
	Open       bool             `json:"open"`
}

// New создаёт пустую закрытую корзину.
func New() *Cart {
	return &Cart{}
}

// Add добавляет позицию меню: увеличивает количество существующей строки или создаёт новую.
func (c *Cart) Add(item model.MenuItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, model.CartLine{MenuItem: item, Quantity: 1})
}

// Remove удаляет строку по идентификатору позиции. Отсутствие строки не ошибка.
func (c *Cart) Remove(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(itemID)
}

// SetQuantity заменяет количество; значение меньше единицы удаляет строку.
func (c *Cart) SetQuantity(itemID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.remove(itemID)
		return
	}
	if i := c.indexOf(itemID); i >= 0 {
		c.lines[i].Quantity = quantity
	}
}

// Clear очищает корзину. Состояние панели не меняется.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
}

// Subtract вычитает количества переданных строк; строки с нулевым остатком удаляются.
// Позиции, добавленные после снятия lines, остаются в корзине.
func (c *Cart) Subtract(lines []model.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range lines {
		i := c.indexOf(l.ID)
		if i < 0 {
			continue
		}
		c.lines[i].Quantity -= l.Quantity
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
	}
}

// TotalItems возвращает сумму количеств по всем строкам.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.totalItems()
}

// TotalPrice пересчитывает стоимость корзины по сохранённым цене и количеству.
func (c *Cart) TotalPrice() model.Money {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.totalPrice()
}

// Lines возвращает копию строк в порядке добавления.
func (c *Cart) Lines() []model.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.copyLines()
}

// Empty сообщает, что в корзине нет строк.
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.lines) == 0
}

// Snapshot возвращает строки, итоги и состояние панели, прочитанные под одной блокировкой.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Lines:      c.copyLines(),
		TotalItems: c.totalItems(),
		TotalPrice: c.totalPrice(),
		Open:       c.open,
	}
}

// Open открывает панель корзины.
func (c *Cart) Open() {
	c.setOpen(func(bool) bool { return true })
}

// Close закрывает панель корзины.
func (c *Cart) Close() {
	c.setOpen(func(bool) bool { return false })
}

// Toggle переключает панель корзины.
func (c *Cart) Toggle() {
	c.setOpen(func(open bool) bool { return !open })
}

// IsOpen сообщает, открыта ли панель корзины.
func (c *Cart) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.open
}

func (c *Cart) setOpen(next func(bool) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = next(c.open)
}

func (c *Cart) indexOf(itemID string) int {
	for i := range c.lines {
		if c.lines[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(itemID string) {
	if i := c.indexOf(itemID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) totalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) totalPrice() model.Money {
	var total model.Money
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

func (c *Cart) copyLines() []model.CartLine {
	out := make([]model.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}
