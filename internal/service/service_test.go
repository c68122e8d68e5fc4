package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/cache"
	"github.com/mmeshcher/cafebloom/internal/cart"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

type stubRepo struct {
	mu sync.Mutex

	menu       []model.MenuItem
	menuQuery  []backend.MenuQuery
	menuErr    error
	createdIDs int

	orders      map[string]*model.Order
	orderQuery  []backend.OrderQuery
	createErr   error
	createHook  func()
	lastContact *model.ContactInfo

	// staleReads первых вызовов GetOrder возвращают staleStatus вместо сохранённого.
	staleReads  int
	staleStatus model.OrderStatus

	profiles int

	notifications []model.Notification

	settings *model.RestaurantSettings

	uploads    []string
	uploadErr  error
	uploadHits int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		menu: []model.MenuItem{
			{ID: "1", Name: "Bruschetta", Price: 899, Category: model.CategoryStarters},
			{ID: "2", Name: "Steak", Price: 2499, Category: model.CategoryMain},
			{ID: "3", Name: "Lemonade", Price: 399, Category: model.CategoryDrinks},
			{ID: "4", Name: "Tiramisu", Price: 799, Category: model.CategoryDesserts},
			{ID: "5", Name: "Cheesecake", Price: 699, Category: model.CategoryDesserts},
		},
		orders: map[string]*model.Order{},
	}
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) ListMenuItems(ctx context.Context, q backend.MenuQuery) ([]model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.menuQuery = append(s.menuQuery, q)
	if s.menuErr != nil {
		return nil, s.menuErr
	}
	var res []model.MenuItem
	for _, it := range s.menu {
		if q.Category != model.CategoryAll && q.Category != "" && it.Category != q.Category {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(q.Search)) {
			continue
		}
		res = append(res, it)
	}
	return res, nil
}

func (s *stubRepo) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.menu {
		if it.ID == id {
			it := it
			return &it, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (s *stubRepo) CreateMenuItem(ctx context.Context, item model.MenuItem) (*model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdIDs++
	item.ID = "new-" + string(rune('0'+s.createdIDs))
	s.menu = append(s.menu, item)
	return &item, nil
}

func (s *stubRepo) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (*model.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.menu {
		if it.ID == id {
			s.menu[i] = patch.Apply(it)
			updated := s.menu[i]
			return &updated, nil
		}
	}
	return nil, backend.ErrNotFound
}

func (s *stubRepo) DeleteMenuItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.menu {
		if it.ID == id {
			s.menu = append(s.menu[:i], s.menu[i+1:]...)
			return nil
		}
	}
	return backend.ErrNotFound
}

func (s *stubRepo) CreateOrder(ctx context.Context, items []model.CartLine, contact *model.ContactInfo) (*model.Order, error) {
	if s.createHook != nil {
		s.createHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.lastContact = contact
	o := &model.Order{
		ID:        "order-" + string(rune('a'+len(s.orders))),
		Items:     items,
		Status:    model.OrderStatusPending,
		Contact:   contact,
		CreatedAt: time.Now(),
	}
	s.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (s *stubRepo) ListOrders(ctx context.Context, q backend.OrderQuery) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderQuery = append(s.orderQuery, q)
	var res []model.Order
	for _, o := range s.orders {
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		res = append(res, *o)
	}
	return res, nil
}

func (s *stubRepo) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	cp := *o
	if s.staleReads > 0 {
		s.staleReads--
		cp.Status = s.staleStatus
	}
	return &cp, nil
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	if o.Status != from {
		return nil, backend.ErrConflict
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

func (s *stubRepo) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return nil, backend.ErrNotFound
}

func (s *stubRepo) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Profile, error) {
	return nil, backend.ErrNotFound
}

func (s *stubRepo) CountProfiles(ctx context.Context) (int, error) {
	return s.profiles, nil
}

func (s *stubRepo) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	return s.notifications, nil
}

func (s *stubRepo) MarkNotificationRead(ctx context.Context, id string) error {
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return backend.ErrNotFound
}

func (s *stubRepo) CountUnreadNotifications(ctx context.Context) (int, error) {
	n := 0
	for _, it := range s.notifications {
		if !it.Read {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) GetSettings(ctx context.Context) (*model.RestaurantSettings, error) {
	if s.settings == nil {
		return nil, backend.ErrNotFound
	}
	cp := *s.settings
	return &cp, nil
}

func (s *stubRepo) UpdateSettings(ctx context.Context, settings model.RestaurantSettings) (*model.RestaurantSettings, error) {
	s.settings = &settings
	return &settings, nil
}

func (s *stubRepo) Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error) {
	s.uploadHits++
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads = append(s.uploads, bucket+"|"+path)
	return "https://cdn.example/" + path, nil
}

func newTestService(repo *stubRepo) *Service {
	return NewService(repo, cache.NewMemory(time.Minute), zap.NewNop(), nil)
}

func TestListMenuItems_CategoryFilter(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	desserts, err := svc.ListMenuItems(context.Background(), MenuFilter{Category: model.CategoryDesserts})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(desserts) != 2 {
		t.Fatalf("expected 2 desserts, got %d", len(desserts))
	}
	for _, it := range desserts {
		if it.Category != model.CategoryDesserts {
			t.Fatalf("unexpected category %q in desserts listing", it.Category)
		}
	}

	all, err := svc.ListMenuItems(context.Background(), MenuFilter{Category: model.CategoryAll})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != len(repo.menu) {
		t.Fatalf("expected full menu of %d items, got %d", len(repo.menu), len(all))
	}
}

func TestListMenuItems_UnknownCategory(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	_, err := svc.ListMenuItems(context.Background(), MenuFilter{Category: "soups"})
	if !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.menuQuery) != 0 {
		t.Fatalf("backend must not be called for an invalid category")
	}
}

func TestListMenuItems_CachedUntilMutation(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.ListMenuItems(ctx, MenuFilter{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(repo.menuQuery) != 1 {
		t.Fatalf("expected one backend read, got %d", len(repo.menuQuery))
	}

	if _, err := svc.CreateMenuItem(ctx, model.MenuItem{Name: "Soda", Price: 199, Category: model.CategoryDrinks}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, err := svc.ListMenuItems(ctx, MenuFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.menuQuery) != 2 {
		t.Fatalf("expected cache invalidation after create, got %d reads", len(repo.menuQuery))
	}
	if len(items) != 6 {
		t.Fatalf("expected 6 items after create, got %d", len(items))
	}
}

func TestCreateMenuItem_Validation(t *testing.T) {
	svc := newTestService(newStubRepo())

	_, err := svc.CreateMenuItem(context.Background(), model.MenuItem{Name: " ", Price: 100, Category: model.CategoryMain})
	if !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteMenuItem_NotFound(t *testing.T) {
	svc := newTestService(newStubRepo())

	if err := svc.DeleteMenuItem(context.Background(), "missing"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckout(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	c := cart.New()
	c.Add(repo.menu[0])
	c.Add(repo.menu[0])
	c.Open()

	contact := &model.ContactInfo{Name: "Ann", Email: "ann@example.com"}
	order, err := svc.Checkout(context.Background(), c, contact, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusPending {
		t.Fatalf("expected pending order, got %q", order.Status)
	}
	if order.Total() != 1798 {
		t.Fatalf("expected total 17.98, got %s", order.Total())
	}
	if repo.lastContact.UserID != "user-1" {
		t.Fatalf("expected contact to carry user id, got %q", repo.lastContact.UserID)
	}
	if contact.UserID != "" {
		t.Fatalf("caller contact must not be mutated")
	}
	if !c.Empty() || c.IsOpen() {
		t.Fatalf("expected cart cleared and closed after checkout")
	}
}

func TestCheckout_KeepsItemsAddedInFlight(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	c := cart.New()
	c.Add(repo.menu[0])
	repo.createHook = func() {
		c.Add(repo.menu[0])
		c.Add(repo.menu[2])
	}

	order, err := svc.Checkout(context.Background(), c, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 1 {
		t.Fatalf("expected the order to hold the checked-out line only, got %+v", order.Items)
	}

	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines left in cart, got %d", len(lines))
	}
	if lines[0].ID != repo.menu[0].ID || lines[0].Quantity != 1 {
		t.Fatalf("expected one %s left, got %+v", repo.menu[0].Name, lines[0])
	}
	if lines[1].ID != repo.menu[2].ID || lines[1].Quantity != 1 {
		t.Fatalf("expected one %s left, got %+v", repo.menu[2].Name, lines[1])
	}
}

func TestCheckout_FailureKeepsCart(t *testing.T) {
	repo := newStubRepo()
	repo.createErr = backend.ErrUnavailable
	svc := newTestService(repo)

	c := cart.New()
	c.Add(repo.menu[1])
	c.Open()

	if _, err := svc.Checkout(context.Background(), c, nil, ""); !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if c.TotalItems() != 1 || !c.IsOpen() {
		t.Fatalf("cart must be untouched when the order is not persisted")
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := newTestService(newStubRepo())

	if _, err := svc.Checkout(context.Background(), cart.New(), nil, ""); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestUpdateOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    model.OrderStatus
		to      model.OrderStatus
		wantErr error
	}{
		{name: "pending to preparing", from: model.OrderStatusPending, to: model.OrderStatusPreparing},
		{name: "preparing to completed", from: model.OrderStatusPreparing, to: model.OrderStatusCompleted},
		{name: "skip forward", from: model.OrderStatusPending, to: model.OrderStatusCompleted},
		{name: "same status", from: model.OrderStatusPreparing, to: model.OrderStatusPreparing},
		{name: "backward", from: model.OrderStatusCompleted, to: model.OrderStatusPending, wantErr: ErrInvalidTransition},
		{name: "unknown", from: model.OrderStatusPending, to: "cancelled", wantErr: validation.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubRepo()
			repo.orders["o1"] = &model.Order{ID: "o1", Status: tt.from}
			svc := newTestService(repo)

			got, err := svc.UpdateOrderStatus(context.Background(), "o1", tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if repo.orders["o1"].Status != tt.from {
					t.Fatalf("status must not change on rejected transition")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.to {
				t.Fatalf("expected status %q, got %q", tt.to, got.Status)
			}
		})
	}
}

func TestUpdateOrderStatus_StaleRead(t *testing.T) {
	tests := []struct {
		name       string
		stored     model.OrderStatus
		to         model.OrderStatus
		wantErr    error
		wantStored model.OrderStatus
	}{
		{
			name:       "completed elsewhere, preparing rejected",
			stored:     model.OrderStatusCompleted,
			to:         model.OrderStatusPreparing,
			wantErr:    ErrInvalidTransition,
			wantStored: model.OrderStatusCompleted,
		},
		{
			name:       "preparing elsewhere, completed still applies",
			stored:     model.OrderStatusPreparing,
			to:         model.OrderStatusCompleted,
			wantStored: model.OrderStatusCompleted,
		},
		{
			name:       "same target elsewhere",
			stored:     model.OrderStatusPreparing,
			to:         model.OrderStatusPreparing,
			wantStored: model.OrderStatusPreparing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubRepo()
			repo.orders["o1"] = &model.Order{ID: "o1", Status: tt.stored}
			repo.staleReads = 1
			repo.staleStatus = model.OrderStatusPending
			svc := newTestService(repo)

			got, err := svc.UpdateOrderStatus(context.Background(), "o1", tt.to)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Status != tt.to {
					t.Fatalf("expected status %q, got %q", tt.to, got.Status)
				}
			}
			if repo.orders["o1"].Status != tt.wantStored {
				t.Fatalf("stored status: got %q want %q", repo.orders["o1"].Status, tt.wantStored)
			}
		})
	}
}

func TestListOrders_AllDoesNotFilter(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	if _, err := svc.ListOrders(context.Background(), OrderFilter{Status: "all"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.orderQuery[0].Status != "" {
		t.Fatalf("expected no status filter for all, got %q", repo.orderQuery[0].Status)
	}

	if _, err := svc.ListOrders(context.Background(), OrderFilter{Status: "lost"}); !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadImage(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	url, err := svc.UploadImage(context.Background(), "cake.png", "image/png", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.uploads) != 1 || !strings.HasPrefix(repo.uploads[0], "food-images|food-images/") ||
		!strings.HasSuffix(repo.uploads[0], ".png") {
		t.Fatalf("unexpected upload path %v", repo.uploads)
	}
	if !strings.HasPrefix(url, "https://cdn.example/food-images/") {
		t.Fatalf("unexpected public url %q", url)
	}
}

func TestUploadImage_ExtensionFromContentType(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	for _, name := range []string{"shell.php", "x%2e#.png", "noext"} {
		if _, err := svc.UploadImage(context.Background(), name, "image/jpeg", []byte{1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for _, u := range repo.uploads {
		if !strings.HasSuffix(u, ".jpg") || strings.ContainsAny(u, "%#") {
			t.Fatalf("object name must come from the content type, got %q", u)
		}
	}
}

func TestUploadImage_RejectedBeforeBackend(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	big := make([]byte, validation.MaxImageSize+1)
	if _, err := svc.UploadImage(context.Background(), "big.png", "image/png", big); err == nil {
		t.Fatalf("expected oversized image to be rejected")
	}
	if _, err := svc.UploadImage(context.Background(), "doc.pdf", "application/pdf", []byte{1}); err == nil {
		t.Fatalf("expected non-image to be rejected")
	}
	if repo.uploadHits != 0 {
		t.Fatalf("backend must not be called for rejected files")
	}
}

func TestNotifications(t *testing.T) {
	repo := newStubRepo()
	repo.notifications = []model.Notification{{ID: "n1"}, {ID: "n2"}}
	svc := newTestService(repo)
	ctx := context.Background()

	if err := svc.MarkNotificationRead(ctx, "n1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, err := svc.UnreadNotifications(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 unread, got %d (%v)", n, err)
	}
	if err := svc.MarkNotificationRead(ctx, "missing"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettings_CachedUntilUpdate(t *testing.T) {
	repo := newStubRepo()
	repo.settings = &model.RestaurantSettings{Name: "Café Bloom"}
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.GetSettings(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.UpdateSettings(ctx, model.RestaurantSettings{Name: "Bloom Bistro"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Bloom Bistro" {
		t.Fatalf("expected updated settings, got %q", got.Name)
	}

	if _, err := svc.UpdateSettings(ctx, model.RestaurantSettings{}); !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildDashboard(t *testing.T) {
	tea := model.MenuItem{ID: "tea", Name: "Tea", Price: 250}
	cake := model.MenuItem{ID: "cake", Name: "Cake", Price: 700}
	soup := model.MenuItem{ID: "soup", Name: "Soup", Price: 550}
	pie := model.MenuItem{ID: "pie", Name: "Pie", Price: 600}

	orders := []model.Order{
		{ID: "4", Status: model.OrderStatusPending, Items: []model.CartLine{{MenuItem: tea, Quantity: 3}}},
		{ID: "3", Status: model.OrderStatusCompleted, Items: []model.CartLine{{MenuItem: cake, Quantity: 1}, {MenuItem: tea, Quantity: 1}}},
		{ID: "2", Status: model.OrderStatusCompleted, Items: []model.CartLine{{MenuItem: soup, Quantity: 2}}},
		{ID: "1", Status: model.OrderStatusPreparing, Items: []model.CartLine{{MenuItem: pie, Quantity: 1}}},
	}

	stats := buildDashboard(orders, 8, 5)

	if stats.TotalOrders != 4 || stats.MenuItems != 8 || stats.ActiveUsers != 5 {
		t.Fatalf("unexpected counters %+v", stats)
	}
	if stats.Revenue != 750+950+1100+600 {
		t.Fatalf("unexpected revenue %s", stats.Revenue)
	}
	if stats.ByStatus["completed"] != 2 || stats.ByStatus["pending"] != 1 {
		t.Fatalf("unexpected status counts %v", stats.ByStatus)
	}
	if len(stats.RecentOrders) != 3 || stats.RecentOrders[0].ID != "4" {
		t.Fatalf("unexpected recent orders %v", stats.RecentOrders)
	}

	want := []string{"tea", "soup", "cake"}
	if len(stats.PopularItems) != len(want) {
		t.Fatalf("expected %d popular items, got %d", len(want), len(stats.PopularItems))
	}
	for i, id := range want {
		if stats.PopularItems[i].ItemID != id {
			t.Fatalf("popular[%d] = %q, want %q", i, stats.PopularItems[i].ItemID, id)
		}
	}
}

func TestDashboard(t *testing.T) {
	repo := newStubRepo()
	repo.profiles = 2
	svc := newTestService(repo)

	stats, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.MenuItems != 5 || stats.ActiveUsers != 2 || stats.TotalOrders != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
