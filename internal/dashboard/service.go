package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/request"
)

type Repository interface {
	// Rows returns every request inside the visibility filter.
	Rows(ctx context.Context, v request.Visibility) ([]Row, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Stats is computed over the same role-scoped set the request list shows.
func (s *Service) Stats(ctx context.Context, actor identity.AuthContext, now time.Time) (Stats, error) {
	if now.IsZero() {
		now = s.now()
	}
	rows, err := s.repo.Rows(ctx, request.VisibilityFor(actor))
	if err != nil {
		s.logger.Error("failed to load dashboard rows", "error", err, "profile_id", actor.ProfileID)
		return Stats{}, err
	}
	return Compute(rows, now), nil
}
