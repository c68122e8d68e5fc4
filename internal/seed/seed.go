// Package seed загружает демонстрационное меню из YAML в хранилище.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

//go:embed menu.yaml
var defaultMenu string

type menuFile struct {
	Items []menuEntry `yaml:"items"`
}

type menuEntry struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	ImageURL    string  `yaml:"image_url"`
	Category    string  `yaml:"category"`
}

// DefaultMenu возвращает встроенное демонстрационное меню.
func DefaultMenu() ([]model.MenuItem, error) {
	return Load(strings.NewReader(defaultMenu))
}

// Load разбирает меню в формате YAML и проверяет каждую позицию.
func Load(r io.Reader) ([]model.MenuItem, error) {
	var f menuFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}

	items := make([]model.MenuItem, 0, len(f.Items))
	for i, e := range f.Items {
		item := model.MenuItem{
			Name:        strings.TrimSpace(e.Name),
			Description: strings.TrimSpace(e.Description),
			Price:       model.MoneyFromFloat(e.Price),
			ImageURL:    e.ImageURL,
			Category:    model.Category(e.Category),
		}
		if err := validation.MenuItem(item); err != nil {
			return nil, fmt.Errorf("menu item %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Result содержит итог заполнения меню.
type Result struct {
	Created int
	Skipped int
}

// Run добавляет отсутствующие позиции. Позиция с тем же названием и разделом
// считается уже добавленной, поэтому повторный запуск ничего не дублирует.
func Run(ctx context.Context, store backend.MenuStore, items []model.MenuItem, logger *zap.Logger) (Result, error) {
	existing, err := store.ListMenuItems(ctx, backend.MenuQuery{Category: model.CategoryAll})
	if err != nil {
		return Result{}, fmt.Errorf("list menu: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[key(item)] = struct{}{}
	}

	var res Result
	for _, item := range items {
		if _, ok := seen[key(item)]; ok {
			res.Skipped++
			continue
		}

		created, err := store.CreateMenuItem(ctx, item)
		if err != nil {
			return res, fmt.Errorf("create %q: %w", item.Name, err)
		}
		seen[key(item)] = struct{}{}
		res.Created++
		logger.Info("menu item created", zap.String("id", created.ID), zap.String("name", created.Name))
	}
	return res, nil
}

func key(item model.MenuItem) string {
	return string(item.Category) + "\x00" + strings.ToLower(item.Name)
}
