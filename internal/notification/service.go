package notification

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/audit-workflow/internal/core/identity"
)

// Repository scopes every read-state operation to one user. Operations on
// another user's notification behave as if it did not exist.
type Repository interface {
	CreateBatch(ctx context.Context, ns []*Notification) error
	List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	Clear(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, actor identity.AuthContext, unreadOnly bool, limit, offset int) ([]*Notification, error) {
	return s.repo.List(ctx, actor.ProfileID, unreadOnly, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, actor identity.AuthContext, id string) error {
	return s.repo.MarkRead(ctx, actor.ProfileID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, actor identity.AuthContext) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.ProfileID)
	if err != nil {
		s.logger.Error("failed to mark notifications read", "error", err, "user_id", actor.ProfileID)
		return 0, err
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, actor identity.AuthContext, id string) error {
	return s.repo.Delete(ctx, actor.ProfileID, id)
}

func (s *Service) Clear(ctx context.Context, actor identity.AuthContext) (int64, error) {
	n, err := s.repo.Clear(ctx, actor.ProfileID)
	if err != nil {
		s.logger.Error("failed to clear notifications", "error", err, "user_id", actor.ProfileID)
		return 0, err
	}
	s.logger.Info("notifications cleared", "user_id", actor.ProfileID, "count", n)
	return n, nil
}

func (s *Service) UnreadCount(ctx context.Context, actor identity.AuthContext) (int64, error) {
	return s.repo.UnreadCount(ctx, actor.ProfileID)
}
