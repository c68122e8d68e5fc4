// Package backend описывает контракт удалённого сервиса данных: аутентификацию,
// таблицы меню, заказов, профилей и уведомлений, а также хранилище файлов.
package backend

import (
	"context"
	"errors"

	"github.com/mmeshcher/cafebloom/internal/model"
)

var (
	// ErrNotFound возвращается, если запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists возвращается при регистрации уже существующего email.
	ErrUserExists = errors.New("user already exists")
	// ErrConflict возвращается, если запись изменилась после чтения.
	ErrConflict = errors.New("record changed concurrently")
	// ErrUnavailable возвращается, если удалённый сервис недоступен.
	ErrUnavailable = errors.New("backend unavailable")
)

// AuthSession описывает результат успешного входа.
type AuthSession struct {
	Identity    model.Identity
	AccessToken string
}

// SignUpRequest содержит данные регистрации.
type SignUpRequest struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Auth описывает операции аутентификации.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (*AuthSession, error)
	SignUp(ctx context.Context, req SignUpRequest) error
	SignOut(ctx context.Context, accessToken string) error
	UpdatePassword(ctx context.Context, accessToken, userID, password string) error
}

// MenuQuery задаёт фильтры выборки меню. Пустые поля не фильтруют.
type MenuQuery struct {
	Category model.Category
	Search   string
}

// MenuStore описывает доступ к таблице menu_items.
type MenuStore interface {
	ListMenuItems(ctx context.Context, q MenuQuery) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error)
	CreateMenuItem(ctx context.Context, item model.MenuItem) (*model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (*model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
}

// OrderQuery задаёт фильтры выборки заказов. Пустые поля не фильтруют.
type OrderQuery struct {
	Status   model.OrderStatus
	UserID   string
	IDPrefix string
	Limit    int
}

// OrderStore описывает доступ к таблице orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, items []model.CartLine, contact *model.ContactInfo) (*model.Order, error)
	ListOrders(ctx context.Context, q OrderQuery) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	// UpdateOrderStatus меняет статус, только если текущий равен from; иначе ErrConflict.
	UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (*model.Order, error)
}

// ProfileStore описывает доступ к таблице profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Profile, error)
	CountProfiles(ctx context.Context) (int, error)
}

// NotificationStore описывает доступ к таблице notifications.
type NotificationStore interface {
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	CountUnreadNotifications(ctx context.Context) (int, error)
}

// SettingsStore описывает доступ к настройкам заведения.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*model.RestaurantSettings, error)
	UpdateSettings(ctx context.Context, s model.RestaurantSettings) (*model.RestaurantSettings, error)
}

// ObjectStore описывает хранилище файлов.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error)
}

// Backend объединяет все возможности удалённого сервиса данных.
type Backend interface {
	Auth
	MenuStore
	OrderStore
	ProfileStore
	NotificationStore
	SettingsStore
	ObjectStore
	Close() error
}
