package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

const (
	tableMenuItems     = "menu_items"
	tableOrders        = "orders"
	tableProfiles      = "profiles"
	tableNotifications = "notifications"
	tableSettings      = "restaurant_settings"

	settingsRowID = 1
)

// ListMenuItems возвращает позиции меню, отфильтрованные по разделу и названию.
func (c *Client) ListMenuItems(ctx context.Context, q backend.MenuQuery) ([]model.MenuItem, error) {
	qb := c.From(tableMenuItems).Select("*").Order("category", true).Order("name", true)
	if q.Category != "" && q.Category != model.CategoryAll {
		qb.Eq("category", q.Category)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		qb.ILike("name", "*"+s+"*")
	}

	var items []model.MenuItem
	if err := qb.Execute(ctx, &items); err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	return items, nil
}

// GetMenuItem возвращает позицию меню по идентификатору.
func (c *Client) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := c.From(tableMenuItems).Eq("id", id).Single().Execute(ctx, &item); err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return &item, nil
}

type menuItemRow struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       model.Money    `json:"price"`
	ImageURL    string         `json:"image_url"`
	Category    model.Category `json:"category"`
}

// CreateMenuItem добавляет позицию меню; идентификатор и время создания назначает база.
func (c *Client) CreateMenuItem(ctx context.Context, item model.MenuItem) (*model.MenuItem, error) {
	row := menuItemRow{
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		ImageURL:    item.ImageURL,
		Category:    item.Category,
	}

	var created model.MenuItem
	if err := c.From(tableMenuItems).Single().Insert(ctx, row, &created); err != nil {
		return nil, fmt.Errorf("insert menu item: %w", err)
	}
	return &created, nil
}

// UpdateMenuItem изменяет переданные поля позиции меню.
func (c *Client) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (*model.MenuItem, error) {
	var updated model.MenuItem
	if err := c.From(tableMenuItems).Eq("id", id).Single().Update(ctx, patch, &updated); err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	return &updated, nil
}

// DeleteMenuItem удаляет позицию меню.
func (c *Client) DeleteMenuItem(ctx context.Context, id string) error {
	var deleted []model.MenuItem
	if err := c.From(tableMenuItems).Eq("id", id).Delete(ctx, &deleted); err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if len(deleted) == 0 {
		return backend.ErrNotFound
	}
	return nil
}

type orderRow struct {
	Items    []model.CartLine   `json:"items"`
	Status   model.OrderStatus  `json:"status"`
	UserInfo *model.ContactInfo `json:"user_info,omitempty"`
}

// CreateOrder сохраняет заказ в статусе pending.
func (c *Client) CreateOrder(ctx context.Context, items []model.CartLine, contact *model.ContactInfo) (*model.Order, error) {
	row := orderRow{Items: items, Status: model.OrderStatusPending, UserInfo: contact}

	var created model.Order
	if err := c.From(tableOrders).Single().Insert(ctx, row, &created); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return &created, nil
}

// ListOrders возвращает заказы от новых к старым.
// Столбец id имеет тип uuid, поэтому поиск по префиксу выполняется на стороне клиента.
func (c *Client) ListOrders(ctx context.Context, q backend.OrderQuery) ([]model.Order, error) {
	qb := c.From(tableOrders).Select("*").Order("created_at", false)
	if q.Status != "" {
		qb.Eq("status", q.Status)
	}
	if q.UserID != "" {
		qb.Eq("user_info->>user_id", q.UserID)
	}
	if q.IDPrefix == "" && q.Limit > 0 {
		qb.Limit(q.Limit)
	}

	var orders []model.Order
	if err := qb.Execute(ctx, &orders); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	if q.IDPrefix != "" {
		prefix := strings.ToLower(q.IDPrefix)
		filtered := orders[:0]
		for _, o := range orders {
			if strings.HasPrefix(strings.ToLower(o.ID), prefix) {
				filtered = append(filtered, o)
				if q.Limit > 0 && len(filtered) == q.Limit {
					break
				}
			}
		}
		orders = filtered
	}

	return orders, nil
}

// GetOrder возвращает заказ по идентификатору.
func (c *Client) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	if err := c.From(tableOrders).Eq("id", id).Single().Execute(ctx, &o); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// UpdateOrderStatus переводит заказ из статуса from в to.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (*model.Order, error) {
	var o model.Order
	err := c.From(tableOrders).Eq("id", id).Eq("status", from).Single().
		Update(ctx, map[string]model.OrderStatus{"status": to}, &o)
	if err == nil {
		return &o, nil
	}
	if !errors.Is(err, backend.ErrNotFound) {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if _, err := c.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("update order %s: %w", id, backend.ErrConflict)
}

// GetProfile возвращает профиль пользователя.
func (c *Client) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	if err := c.From(tableProfiles).Eq("id", userID).Single().Execute(ctx, &p); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile изменяет переданные поля профиля.
func (c *Client) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Profile, error) {
	var p model.Profile
	if err := c.From(tableProfiles).Eq("id", userID).Single().Update(ctx, patch, &p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}

// CountProfiles возвращает число зарегистрированных пользователей.
func (c *Client) CountProfiles(ctx context.Context) (int, error) {
	n, err := c.From(tableProfiles).Select("id").ExecuteCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

// ListNotifications возвращает уведомления от новых к старым.
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var res []model.Notification
	if err := c.From(tableNotifications).Order("created_at", false).Execute(ctx, &res); err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	return res, nil
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	var updated []model.Notification
	err := c.From(tableNotifications).Eq("id", id).
		Update(ctx, map[string]bool{"read": true}, &updated)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if len(updated) == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// CountUnreadNotifications возвращает число непрочитанных уведомлений.
func (c *Client) CountUnreadNotifications(ctx context.Context) (int, error) {
	n, err := c.From(tableNotifications).Select("id").Is("read", false).ExecuteCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

type settingsRow struct {
	ID int `json:"id"`
	model.RestaurantSettings
}

// GetSettings возвращает настройки заведения.
func (c *Client) GetSettings(ctx context.Context) (*model.RestaurantSettings, error) {
	var row settingsRow
	if err := c.From(tableSettings).Eq("id", settingsRowID).Single().Execute(ctx, &row); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &row.RestaurantSettings, nil
}

// UpdateSettings сохраняет настройки заведения.
func (c *Client) UpdateSettings(ctx context.Context, s model.RestaurantSettings) (*model.RestaurantSettings, error) {
	var row settingsRow
	err := c.From(tableSettings).Single().
		Upsert(ctx, settingsRow{ID: settingsRowID, RestaurantSettings: s}, &row)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &row.RestaurantSettings, nil
}
