package service

import (
	"context"
	"strings"

	"github.com/mmeshcher/cafebloom/internal/cache"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

// GetSettings возвращает настройки заведения.
func (s *Service) GetSettings(ctx context.Context) (*model.RestaurantSettings, error) {
	settings, err := cache.Fetch(ctx, s.loader, collectionSettings, "current",
		func(ctx context.Context) (*model.RestaurantSettings, error) {
			return s.repo.GetSettings(ctx)
		})
	if err != nil {
		s.logFailure("get settings error", err)
		return nil, err
	}
	return settings, nil
}

// UpdateSettings сохраняет настройки заведения.
func (s *Service) UpdateSettings(ctx context.Context, settings model.RestaurantSettings) (*model.RestaurantSettings, error) {
	settings.Name = strings.TrimSpace(settings.Name)
	if err := validation.Required("name", settings.Name); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateSettings(ctx, settings)
	if err != nil {
		s.logFailure("update settings error", err)
		return nil, err
	}

	s.loader.Invalidate(ctx, collectionSettings)
	return updated, nil
}
