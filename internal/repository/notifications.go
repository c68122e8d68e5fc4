package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

// ListNotifications возвращает уведомления от новых к старым.
func (r *PostgresRepository) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var res []model.Notification
	err := r.withRetry(ctx, func() error {
		res = res[:0]

		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, title, message, type, read, created_at
			 FROM notifications
			 ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n model.Notification
			if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
				return fmt.Errorf("scan notification: %w", err)
			}
			res = append(res, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}

	return res, nil
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// CountUnreadNotifications возвращает число непрочитанных уведомлений.
func (r *PostgresRepository) CountUnreadNotifications(ctx context.Context) (int, error) {
	var n int
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE NOT read`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
