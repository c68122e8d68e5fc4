package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

// SignIn проверяет email и пароль пользователя.
func (r *PostgresRepository) SignIn(ctx context.Context, email, password string) (*backend.AuthSession, error) {
	var (
		id   string
		hash []byte
	)
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, password_hash FROM users WHERE email = $1`,
			email,
		).Scan(&id, &hash)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, backend.ErrInvalidCredentials
	}

	return &backend.AuthSession{
		Identity: model.Identity{ID: id, Email: email},
	}, nil
}

// SignUp создаёт пользователя и его профиль в одной транзакции.
func (r *PostgresRepository) SignUp(ctx context.Context, req backend.SignUpRequest) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.NewString()

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		id, req.Email, hash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", backend.ErrUserExists, req.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO profiles (id, name, email, phone) VALUES ($1, $2, $3, $4)`,
		id, req.Name, req.Email, req.Phone,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// SignOut ничего не делает: репозиторий не хранит серверных сессий.
func (r *PostgresRepository) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

// UpdatePassword заменяет хеш пароля пользователя.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, accessToken, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		userID, hash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return backend.ErrNotFound
	}

	return nil
}
