package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

const profileColumns = `id, name, email, phone, address, is_admin`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.IsAdmin); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile возвращает профиль пользователя.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p *model.Profile
	err := r.withRetry(ctx, func() error {
		var err error
		p, err = scanProfile(r.pool.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile изменяет переданные поля профиля.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`UPDATE profiles SET
		   name    = COALESCE($2, name),
		   email   = COALESCE($3, email),
		   phone   = COALESCE($4, phone),
		   address = COALESCE($5, address)
		 WHERE id = $1
		 RETURNING `+profileColumns,
		userID, patch.Name, patch.Email, patch.Phone, patch.Address,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// CountProfiles возвращает число зарегистрированных пользователей.
func (r *PostgresRepository) CountProfiles(ctx context.Context) (int, error) {
	var n int
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}
