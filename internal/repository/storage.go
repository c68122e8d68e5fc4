package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

// GetSettings возвращает настройки заведения.
func (r *PostgresRepository) GetSettings(ctx context.Context) (*model.RestaurantSettings, error) {
	var s model.RestaurantSettings
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT name, address, phone FROM restaurant_settings WHERE id = 1`,
		).Scan(&s.Name, &s.Address, &s.Phone)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// UpdateSettings сохраняет настройки заведения.
func (r *PostgresRepository) UpdateSettings(ctx context.Context, s model.RestaurantSettings) (*model.RestaurantSettings, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO restaurant_settings (id, name, address, phone) VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address, phone = EXCLUDED.phone`,
		s.Name, s.Address, s.Phone,
	)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return &s, nil
}

// Upload сохраняет файл и возвращает его публичный адрес.
func (r *PostgresRepository) Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO objects (bucket, path, content_type, data) VALUES ($1, $2, $3, $4)`,
		bucket, path, contentType, data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("object %s/%s already exists", bucket, path)
		}
		return "", fmt.Errorf("insert object: %w", err)
	}

	return r.publicURL + "/storage/" + url.PathEscape(bucket) + "/" + escapePath(path), nil
}

// GetObject возвращает тип содержимого и данные файла.
func (r *PostgresRepository) GetObject(ctx context.Context, bucket, path string) (string, []byte, error) {
	var (
		contentType string
		data        []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT content_type, data FROM objects WHERE bucket = $1 AND path = $2`,
		bucket, path,
	).Scan(&contentType, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, backend.ErrNotFound
		}
		return "", nil, fmt.Errorf("get object: %w", err)
	}
	return contentType, data, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
