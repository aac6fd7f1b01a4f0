package comment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/request"
)

type Repository interface {
	Create(ctx context.Context, c *Comment) error
	ListByRequest(ctx context.Context, requestID string) ([]*Comment, error)
}

// RequestReader is the part of the request store the thread needs.
type RequestReader interface {
	GetByID(ctx context.Context, id string) (*request.Request, error)
}

type Service struct {
	repo      Repository
	requests  RequestReader
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, requests RequestReader, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		requests:  requests,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) List(ctx context.Context, actor identity.AuthContext, requestID string) ([]*Comment, error) {
	if _, err := s.visibleRequest(ctx, actor, requestID); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		s.logger.Error("failed to list comments", "error", err, "request_id", requestID)
		return nil, err
	}
	return comments, nil
}

// Add appends a comment by actor to a request they can see.
func (s *Service) Add(ctx context.Context, actor identity.AuthContext, requestID string, dto AddCommentDTO) (*Comment, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	r, err := s.visibleRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}

	authorID := actor.ProfileID
	c := &Comment{
		ID:         uuid.New().String(),
		RequestID:  requestID,
		AuthorID:   &authorID,
		AuthorName: actor.FullName,
		Content:    strings.TrimSpace(dto.Content),
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("failed to add comment", "error", err, "request_id", requestID, "author_id", actor.ProfileID)
		return nil, err
	}

	s.logger.Info("comment added", "comment_id", c.ID, "request_id", requestID, "author_id", actor.ProfileID)
	s.publish(ctx, events.NewCommentAddedEvent(c.ID, r.Snapshot(), false))
	return c, nil
}

// AddSystemComment records a lifecycle line on the request thread.
func (s *Service) AddSystemComment(ctx context.Context, snapshot events.RequestSnapshot, content string) error {
	c := &Comment{
		ID:         uuid.New().String(),
		RequestID:  snapshot.RequestID,
		AuthorName: SystemAuthorName,
		Content:    content,
		IsSystem:   true,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	s.publish(ctx, events.NewCommentAddedEvent(c.ID, snapshot, true))
	return nil
}

func (s *Service) visibleRequest(ctx context.Context, actor identity.AuthContext, requestID string) (*request.Request, error) {
	r, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.CanView(actor, r) {
		return nil, internal.ErrAccessRestricted
	}
	return r, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
	}
}
