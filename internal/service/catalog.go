package service

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/cache"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

// MenuFilter задаёт раздел меню и строку поиска по названию.
type MenuFilter struct {
	Category model.Category
	Search   string
}

func (f MenuFilter) normalize() MenuFilter {
	if f.Category == "" {
		f.Category = model.CategoryAll
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f MenuFilter) cacheKey() string {
	v := url.Values{}
	v.Set("category", string(f.Category))
	if f.Search != "" {
		v.Set("search", strings.ToLower(f.Search))
	}
	return v.Encode()
}

// ListMenuItems возвращает позиции меню. Раздел all читает меню целиком,
// конкретный раздел фильтруется на стороне хранилища.
func (s *Service) ListMenuItems(ctx context.Context, f MenuFilter) ([]model.MenuItem, error) {
	f = f.normalize()
	if err := validation.Category(f.Category); err != nil {
		return nil, err
	}

	items, err := cache.Fetch(ctx, s.loader, collectionMenu, f.cacheKey(),
		func(ctx context.Context) ([]model.MenuItem, error) {
			return s.repo.ListMenuItems(ctx, backend.MenuQuery{Category: f.Category, Search: f.Search})
		})
	if err != nil {
		s.logFailure("list menu items error", err, zap.String("category", string(f.Category)))
		return nil, err
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	return items, nil
}

// GetMenuItem возвращает позицию меню по идентификатору.
func (s *Service) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	item, err := cache.Fetch(ctx, s.loader, collectionMenu, "id="+id,
		func(ctx context.Context) (*model.MenuItem, error) {
			return s.repo.GetMenuItem(ctx, id)
		})
	if err != nil {
		s.logFailure("get menu item error", err, zap.String("id", id))
		return nil, err
	}
	return item, nil
}

// CreateMenuItem добавляет позицию меню.
func (s *Service) CreateMenuItem(ctx context.Context, item model.MenuItem) (*model.MenuItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := validation.MenuItem(item); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateMenuItem(ctx, item)
	if err != nil {
		s.logFailure("create menu item error", err, zap.String("name", item.Name))
		return nil, err
	}

	s.loader.Invalidate(ctx, collectionMenu)
	return created, nil
}

// UpdateMenuItem изменяет позицию меню.
func (s *Service) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (*model.MenuItem, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := validation.MenuItemPatch(patch); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateMenuItem(ctx, id, patch)
	if err != nil {
		s.logFailure("update menu item error", err, zap.String("id", id))
		return nil, err
	}

	s.loader.Invalidate(ctx, collectionMenu)
	return updated, nil
}

// DeleteMenuItem удаляет позицию меню. Сохранённые заказы не меняются:
// строки заказа хранят снимок позиции.
func (s *Service) DeleteMenuItem(ctx context.Context, id string) error {
	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		s.logFailure("delete menu item error", err, zap.String("id", id))
		return err
	}

	s.loader.Invalidate(ctx, collectionMenu)
	return nil
}
