package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/metrics"
	"github.com/frahmantamala/audit-workflow/internal/request"
)

const deliveryTimeout = 10 * time.Second

// Directory resolves who reviews requests of a department.
type Directory interface {
	// Reviewers returns every admin of the organization and every manager
	// of department.
	Reviewers(ctx context.Context, organizationID, department string) ([]string, error)
}

type Dispatcher interface {
	Submit(job Job) bool
}

// Fanout turns lifecycle triggers into stored notifications.
type Fanout struct {
	repo       Repository
	directory  Directory
	dispatcher Dispatcher
	publisher  events.Publisher
	logger     *slog.Logger
}

func NewFanout(repo Repository, directory Directory, dispatcher Dispatcher, publisher events.Publisher, logger *slog.Logger) *Fanout {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Fanout{
		repo:       repo,
		directory:  directory,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

func (f *Fanout) NotifyReviewers(_ context.Context, r request.Request, action request.SubmitAction) {
	f.submit(Job{Trigger: TriggerSubmitted, Action: action, Request: r})
}

func (f *Fanout) NotifyOwner(_ context.Context, r request.Request) {
	f.submit(Job{Trigger: TriggerTransition, Request: r})
}

func (f *Fanout) submit(job Job) {
	if !f.dispatcher.Submit(job) {
		metrics.RecordNotification(string(job.Trigger), "dropped")
		f.logger.Warn("notification job dropped", "trigger", job.Trigger, "request_id", job.Request.ID)
	}
}

// Deliver runs one job. Failures are logged and never returned to the
// lifecycle operation that fired the trigger.
func (f *Fanout) Deliver(ctx context.Context, job Job) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	var recipients []string
	var title, content string

	switch job.Trigger {
	case TriggerSubmitted:
		ids, err := f.directory.Reviewers(ctx, job.Request.OrganizationID, job.Request.Department)
		if err != nil {
			metrics.RecordNotification(string(job.Trigger), "failed")
			f.logger.Error("failed to resolve notification recipients",
				"error", err,
				"request_id", job.Request.ID,
				"department", job.Request.Department)
			return
		}
		recipients = ids
		title, content = ReviewerMessage(job.Request, job.Action)
	case TriggerTransition:
		recipients = []string{job.Request.EmployeeID}
		title, content = OwnerMessage(job.Request)
	default:
		f.logger.Warn("unknown notification trigger", "trigger", job.Trigger)
		return
	}

	if len(recipients) == 0 {
		metrics.RecordNotification(string(job.Trigger), "no_recipients")
		f.logger.Info("no notification recipients", "request_id", job.Request.ID, "department", job.Request.Department)
		return
	}

	requestID := job.Request.ID
	now := time.Now()
	batch := make([]*Notification, 0, len(recipients))
	for _, userID := range unique(recipients) {
		batch = append(batch, &Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Title:     title,
			Content:   content,
			RequestID: &requestID,
			CreatedAt: now,
		})
	}

	if err := f.repo.CreateBatch(ctx, batch); err != nil {
		metrics.RecordNotification(string(job.Trigger), "failed")
		f.logger.Error("failed to store notifications", "error", err, "request_id", requestID, "recipients", len(batch))
		return
	}
	metrics.RecordNotification(string(job.Trigger), "delivered")

	f.logger.Info("notifications delivered",
		"trigger", job.Trigger,
		"request_id", requestID,
		"recipients", len(batch))

	for _, n := range batch {
		if err := f.publisher.Publish(ctx, events.NewNotificationCreatedEvent(n.ID, n.UserID, requestID)); err != nil {
			f.logger.Error("failed to publish event", "error", err, "event_type", events.EventTypeNotificationCreated)
		}
	}
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
