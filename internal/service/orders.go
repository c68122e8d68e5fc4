package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/cache"
	"github.com/mmeshcher/cafebloom/internal/cart"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

// maxStatusAttempts ограничивает повторы условной смены статуса; статусов три,
// поэтому гонка разрешается не более чем за два повтора.
const maxStatusAttempts = 3

// OrderFilter задаёт фильтры списка заказов для администратора.
type OrderFilter struct {
	Status model.OrderStatus
	Search string
	Limit  int
}

func (f OrderFilter) query() backend.OrderQuery {
	q := backend.OrderQuery{IDPrefix: strings.TrimSpace(f.Search), Limit: f.Limit}
	if f.Status != "all" {
		q.Status = f.Status
	}
	return q
}

func orderCacheKey(q backend.OrderQuery) string {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.UserID != "" {
		v.Set("user", q.UserID)
	}
	if q.IDPrefix != "" {
		v.Set("id", strings.ToLower(q.IDPrefix))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v.Encode()
}

func (s *Service) listOrders(ctx context.Context, q backend.OrderQuery) ([]model.Order, error) {
	orders, err := cache.Fetch(ctx, s.loader, collectionOrders, orderCacheKey(q),
		func(ctx context.Context) ([]model.Order, error) {
			return s.repo.ListOrders(ctx, q)
		})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// CreateOrder сохраняет заказ в статусе pending. Непустой userID связывает заказ с пользователем.
func (s *Service) CreateOrder(ctx context.Context, lines []model.CartLine, contact *model.ContactInfo, userID string) (*model.Order, error) {
	if err := validation.CartLines(lines); err != nil {
		return nil, err
	}
	if err := validation.Contact(contact); err != nil {
		return nil, err
	}

	if userID != "" {
		if contact == nil {
			contact = &model.ContactInfo{}
		} else {
			c := *contact
			contact = &c
		}
		contact.UserID = userID
	}

	order, err := s.repo.CreateOrder(ctx, lines, contact)
	if err != nil {
		s.logFailure("create order error", err, zap.Int("lines", len(lines)))
		return nil, err
	}

	s.loader.Invalidate(ctx, collectionOrders)
	return order, nil
}

// Checkout оформляет заказ из корзины. После успешного сохранения из корзины вычитаются
// оформленные строки, и панель закрывается; позиции, добавленные во время оформления, остаются.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, contact *model.ContactInfo, userID string) (*model.Order, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		s.metrics.Checkout(false)
		return nil, ErrEmptyCart
	}

	order, err := s.CreateOrder(ctx, lines, contact, userID)
	if err != nil {
		s.metrics.Checkout(false)
		return nil, err
	}

	c.Subtract(lines)
	c.Close()
	s.metrics.Checkout(true)
	return order, nil
}

// ListOrders возвращает заказы от новых к старым; статус all не фильтрует.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	if err := validation.OrderStatus(f.Status, true); err != nil {
		return nil, err
	}

	orders, err := s.listOrders(ctx, f.query())
	if err != nil {
		s.logFailure("list orders error", err, zap.String("status", string(f.Status)))
		return nil, err
	}
	return orders, nil
}

// ListUserOrders возвращает заказы пользователя от новых к старым.
func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.listOrders(ctx, backend.OrderQuery{UserID: userID})
	if err != nil {
		s.logFailure("list user orders error", err, zap.String("user_id", userID))
		return nil, err
	}
	return orders, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		s.logFailure("get order error", err, zap.String("id", id))
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus переводит заказ в новый статус. Статус движется только вперёд,
// пропуск промежуточного статуса допустим, повторная установка текущего ничего не меняет.
// Запись условна по прочитанному статусу, поэтому параллельные изменения не откатывают заказ назад.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	if err := validation.OrderStatus(status, false); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		current, err := s.repo.GetOrder(ctx, id)
		if err != nil {
			s.logFailure("get order error", err, zap.String("id", id))
			return nil, err
		}
		if current.Status == status {
			return current, nil
		}
		if !current.Status.CanMoveTo(status) {
			return nil, ErrInvalidTransition
		}

		updated, err := s.repo.UpdateOrderStatus(ctx, id, current.Status, status)
		if errors.Is(err, backend.ErrConflict) {
			s.logger.Info("order status changed concurrently, retrying", zap.String("id", id))
			continue
		}
		if err != nil {
			s.logFailure("update order status error", err,
				zap.String("id", id), zap.String("status", string(status)))
			return nil, err
		}

		s.loader.Invalidate(ctx, collectionOrders)
		s.metrics.OrderStatusChanged(string(status))
		return updated, nil
	}
	return nil, ErrInvalidTransition
}
