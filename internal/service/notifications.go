package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/model"
)

// ListNotifications возвращает уведомления от новых к старым.
func (s *Service) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	res, err := s.repo.ListNotifications(ctx)
	if err != nil {
		s.logFailure("list notifications error", err)
		return nil, err
	}
	if res == nil {
		res = []model.Notification{}
	}
	return res, nil
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	if err := s.repo.MarkNotificationRead(ctx, id); err != nil {
		s.logFailure("mark notification read error", err, zap.String("id", id))
		return err
	}
	return nil
}

// UnreadNotifications возвращает число непрочитанных уведомлений.
func (s *Service) UnreadNotifications(ctx context.Context) (int, error) {
	n, err := s.repo.CountUnreadNotifications(ctx)
	if err != nil {
		s.logFailure("count unread notifications error", err)
		return 0, err
	}
	return n, nil
}
