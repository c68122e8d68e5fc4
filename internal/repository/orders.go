package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

const orderColumns = `id, items, status, user_info, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o        model.Order
		items    []byte
		status   string
		userInfo []byte
	)
	if err := row.Scan(&o.ID, &items, &status, &userInfo, &o.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if len(userInfo) > 0 {
		var contact model.ContactInfo
		if err := json.Unmarshal(userInfo, &contact); err != nil {
			return nil, fmt.Errorf("decode order contact: %w", err)
		}
		o.Contact = &contact
	}
	o.Status = model.OrderStatus(status)

	return &o, nil
}

// CreateOrder сохраняет заказ в статусе pending.
func (r *PostgresRepository) CreateOrder(ctx context.Context, items []model.CartLine, contact *model.ContactInfo) (*model.Order, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}

	var (
		contactJSON []byte
		userID      *string
	)
	if contact != nil {
		contactJSON, err = json.Marshal(contact)
		if err != nil {
			return nil, fmt.Errorf("encode order contact: %w", err)
		}
		if contact.UserID != "" {
			userID = &contact.UserID
		}
	}

	created, err := scanOrder(r.pool.QueryRow(ctx,
		`INSERT INTO orders (id, items, status, user_info, user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+orderColumns,
		uuid.NewString(), itemsJSON, string(model.OrderStatusPending), contactJSON, userID,
	))
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	return created, nil
}

// ListOrders возвращает заказы от новых к старым.
func (r *PostgresRepository) ListOrders(ctx context.Context, q backend.OrderQuery) ([]model.Order, error) {
	var w whereBuilder
	if q.Status != "" {
		w.add("status = ?", string(q.Status))
	}
	if q.UserID != "" {
		w.add("user_id = ?", q.UserID)
	}
	if q.IDPrefix != "" {
		w.add("starts_with(lower(id), lower(?))", q.IDPrefix)
	}
	where := w.sql()
	limit := w.limit(q.Limit)

	var orders []model.Order
	err := r.withRetry(ctx, func() error {
		orders = orders[:0]

		rows, err := r.pool.Query(ctx,
			`SELECT `+orderColumns+` FROM orders`+where+` ORDER BY created_at DESC`+limit,
			w.args...,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("scan order: %w", err)
			}
			orders = append(orders, *o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	return orders, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus переводит заказ из статуса from в to.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, from, to model.OrderStatus) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2 RETURNING `+orderColumns,
		id, string(from), string(to),
	))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if _, err := r.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("update order %s: %w", id, backend.ErrConflict)
}
