package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

const menuColumns = `id, name, description, price, image_url, category, created_at`

func scanMenuItem(row pgx.Row) (*model.MenuItem, error) {
	var (
		item     model.MenuItem
		price    int64
		category string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Description, &price, &item.ImageURL, &category, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Price = model.Money(price)
	item.Category = model.Category(category)
	return &item, nil
}

// ListMenuItems возвращает позиции меню, отфильтрованные по разделу и названию.
func (r *PostgresRepository) ListMenuItems(ctx context.Context, q backend.MenuQuery) ([]model.MenuItem, error) {
	var w whereBuilder
	if q.Category != "" && q.Category != model.CategoryAll {
		w.add("category = ?", string(q.Category))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		w.add("name ILIKE '%' || ? || '%'", s)
	}

	var items []model.MenuItem
	err := r.withRetry(ctx, func() error {
		items = items[:0]

		rows, err := r.pool.Query(ctx,
			`SELECT `+menuColumns+` FROM menu_items`+w.sql()+` ORDER BY category, name`,
			w.args...,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			item, err := scanMenuItem(rows)
			if err != nil {
				return fmt.Errorf("scan menu item: %w", err)
			}
			items = append(items, *item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}

	return items, nil
}

// GetMenuItem возвращает позицию меню по идентификатору.
func (r *PostgresRepository) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	var item *model.MenuItem
	err := r.withRetry(ctx, func() error {
		var err error
		item, err = scanMenuItem(r.pool.QueryRow(ctx,
			`SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return item, nil
}

// CreateMenuItem сохраняет новую позицию меню.
func (r *PostgresRepository) CreateMenuItem(ctx context.Context, item model.MenuItem) (*model.MenuItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	created, err := scanMenuItem(r.pool.QueryRow(ctx,
		`INSERT INTO menu_items (`+menuColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+menuColumns,
		item.ID, item.Name, item.Description, int64(item.Price), item.ImageURL, string(item.Category), item.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("insert menu item: %w", err)
	}
	return created, nil
}

// UpdateMenuItem изменяет переданные поля позиции меню.
func (r *PostgresRepository) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (*model.MenuItem, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanMenuItem(tx.QueryRow(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("lock menu item: %w", err)
	}

	next := patch.Apply(*current)

	updated, err := scanMenuItem(tx.QueryRow(ctx,
		`UPDATE menu_items
		 SET name = $2, description = $3, price = $4, image_url = $5, category = $6
		 WHERE id = $1
		 RETURNING `+menuColumns,
		id, next.Name, next.Description, int64(next.Price), next.ImageURL, string(next.Category),
	))
	if err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return updated, nil
}

// DeleteMenuItem удаляет позицию меню.
func (r *PostgresRepository) DeleteMenuItem(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return backend.ErrNotFound
	}
	return nil
}
