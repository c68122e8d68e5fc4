// Package service реализует бизнес-логику кафе: меню, заказы, уведомления, файлы и сводку.
package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/cache"
	"github.com/mmeshcher/cafebloom/internal/metrics"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

var (
	// ErrInvalidTransition возвращается при попытке вернуть заказ в предыдущий статус.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrEmptyCart возвращается при оформлении пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
)

const (
	collectionMenu     = "menu_items"
	collectionOrders   = "orders"
	collectionSettings = "restaurant_settings"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	backend.MenuStore
	backend.OrderStore
	backend.ProfileStore
	backend.NotificationStore
	backend.SettingsStore
	backend.ObjectStore
	Close() error
}

// Service содержит бизнес-логику кафе.
type Service struct {
	repo    Repository
	loader  *cache.Loader
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService создаёт сервис поверх хранилища и кеша запросов.
// Если кеш не передан, используется кеш в памяти без истечения записей.
func NewService(repo Repository, c cache.Cache, logger *zap.Logger, m *metrics.Metrics) *Service {
	if c == nil {
		c = cache.NewMemory(0)
	}
	return &Service{
		repo:    repo,
		loader:  cache.NewLoader(c, logger),
		logger:  logger,
		metrics: m,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CacheStats возвращает счётчики кеша запросов.
func (s *Service) CacheStats() cache.Stats {
	return s.loader.Stats()
}

// logFailure пишет в лог ошибку обращения к хранилищу. Отсутствие записи и ошибки
// валидации ожидаемы и не логируются.
func (s *Service) logFailure(msg string, err error, fields ...zap.Field) {
	if errors.Is(err, backend.ErrNotFound) || errors.Is(err, validation.ErrInvalid) {
		return
	}
	s.logger.Error(msg, append(fields, zap.Error(err))...)
}
