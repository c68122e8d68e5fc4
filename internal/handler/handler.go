// Package handler содержит HTTP-обработчики API и страниц сервиса кафе.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/cart"
	"github.com/mmeshcher/cafebloom/internal/metrics"
	"github.com/mmeshcher/cafebloom/internal/middleware"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/service"
	"github.com/mmeshcher/cafebloom/internal/session"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ListMenuItems(ctx context.Context, f service.MenuFilter) ([]model.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error)
	CreateMenuItem(ctx context.Context, item model.MenuItem) (*model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (*model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
	UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error)

	Checkout(ctx context.Context, c *cart.Cart, contact *model.ContactInfo, userID string) (*model.Order, error)
	ListOrders(ctx context.Context, f service.OrderFilter) ([]model.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)

	ListNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	UnreadNotifications(ctx context.Context) (int, error)

	GetSettings(ctx context.Context) (*model.RestaurantSettings, error)
	UpdateSettings(ctx context.Context, s model.RestaurantSettings) (*model.RestaurantSettings, error)
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
}

// ObjectReader отдаёт сохранённые файлы; нужен, когда файлы хранит сам сервис.
type ObjectReader interface {
	GetObject(ctx context.Context, bucket, path string) (string, []byte, error)
}

// Deps содержит зависимости обработчика помимо бизнес-логики.
type Deps struct {
	Sessions          *session.Manager
	SessionMiddleware *middleware.SessionMiddleware
	Auth              *middleware.AuthMiddleware
	Limiter           *middleware.RateLimiter
	Metrics           *metrics.Metrics
	Objects           ObjectReader
	StaticDir         string
}

// Handler реализует HTTP-обработчики сервиса кафе.
type Handler struct {
	service Service
	logger  *zap.Logger
	deps    Deps
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, deps Deps) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		deps:    deps,
	}
}

type errorResponse struct {
	Error    string `json:"error"`
	Retry    bool   `json:"retry,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Malformed request body"})
		return false
	}
	return true
}

// writeError переводит ошибку бизнес-логики в HTTP-статус и понятное сообщение.
// Сырые ошибки хранилища клиенту не передаются.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: session.Reason(err)}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, validation.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrEmptyCart):
		status = http.StatusBadRequest
		resp.Error = "Your cart is empty"
	case errors.Is(err, backend.ErrNotFound):
		status = http.StatusNotFound
		resp.Error = "Not found"
	case errors.Is(err, backend.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusConflict
		resp.Error = "Order status can only move forward"
	case errors.Is(err, backend.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, session.ErrNoSession):
		status = http.StatusUnauthorized
		resp.Redirect = middleware.AuthPath
	case errors.Is(err, session.ErrBuiltinAdmin):
		status = http.StatusForbidden
	case errors.Is(err, backend.ErrUnavailable):
		status = http.StatusServiceUnavailable
		resp.Retry = true
	case errors.Is(err, context.Canceled):
		return
	default:
		resp.Retry = true
		h.logger.Error("request error", zap.String("path", r.URL.Path), zap.Error(err))
	}

	writeJSON(w, status, resp)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	st, ok := middleware.StateFromContext(r.Context())
	if !ok {
		h.logger.Error("session missing in request context", zap.String("path", r.URL.Path))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Session unavailable", Retry: true})
		return nil, false
	}
	return st, true
}
