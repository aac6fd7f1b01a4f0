package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/common/validation"
	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/metrics"
	"github.com/frahmantamala/audit-workflow/internal/scorer"
)

const pendingSummary = "Compliance check pending re-evaluation."

// Visibility is the row filter derived from the actor's role.
type Visibility struct {
	OrganizationID    string
	AllInOrganization bool
	Department        string
	EmployeeID        string
}

func VisibilityFor(actor identity.AuthContext) Visibility {
	v := Visibility{OrganizationID: actor.OrganizationID, EmployeeID: actor.ProfileID}
	switch actor.Role {
	case identity.RoleAdmin:
		v.AllInOrganization = true
	case identity.RoleManager:
		v.Department = actor.Department
	}
	return v
}

type Query struct {
	Visibility
	Statuses   []Status
	Department string
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, q Query) ([]*Request, int64, error)
	// UpdateStatus writes to only if the stored status is still from.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	// Resubmit stores the edited content and to=pending only if the stored
	// status is still from.
	Resubmit(ctx context.Context, r *Request, from Status) error
	// Delete removes the request and its comments.
	Delete(ctx context.Context, id string) error
}

type ScoreVerifier interface {
	Verify(token string, in scorer.Input) (scorer.Assessment, error)
}

type DepartmentCatalog interface {
	HasDepartment(ctx context.Context, organizationID, name string) (bool, error)
}

type SystemCommenter interface {
	AddSystemComment(ctx context.Context, snapshot events.RequestSnapshot, content string) error
}

type SubmitAction string

const (
	ActionCreated     SubmitAction = "created"
	ActionResubmitted SubmitAction = "resubmitted"
)

// Notifier delivers fan-out messages. Delivery is best-effort and never
// reports failures to the lifecycle operation.
type Notifier interface {
	NotifyReviewers(ctx context.Context, r Request, action SubmitAction)
	NotifyOwner(ctx context.Context, r Request)
}

type AttachmentStore interface {
	OwnedBy(path, uploaderID string) bool
	DisplayName(path string) string
	URL(ctx context.Context, path string) (string, error)
}

type Service struct {
	repo        Repository
	scores      ScoreVerifier
	departments DepartmentCatalog
	comments    SystemCommenter
	notifier    Notifier
	attachments AttachmentStore
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

type Dependencies struct {
	Repository  Repository
	Scores      ScoreVerifier
	Departments DepartmentCatalog
	Comments    SystemCommenter
	Notifier    Notifier
	Attachments AttachmentStore
	Publisher   events.Publisher
	Logger      *slog.Logger
}

func NewService(deps Dependencies) *Service {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:        deps.Repository,
		scores:      deps.Scores,
		departments: deps.Departments,
		comments:    deps.Comments,
		notifier:    deps.Notifier,
		attachments: deps.Attachments,
		publisher:   publisher,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor identity.AuthContext, dto SubmitRequestDTO) (*Request, error) {
	content, assessment, err := s.checkSubmission(ctx, actor, dto)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := &Request{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		EmployeeID:     actor.ProfileID,
		EmployeeName:   actor.FullName,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	content.applyTo(r, assessment)

	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("failed to create request", "error", err, "employee_id", actor.ProfileID)
		return nil, err
	}

	s.logger.Info("request created",
		"request_id", r.ID,
		"employee_id", r.EmployeeID,
		"department", r.Department,
		"amount", r.TotalAmount.String(),
		"ai_score", r.AICompletenessScore)

	s.notifier.NotifyReviewers(ctx, *r, ActionCreated)
	s.publish(ctx, events.NewRequestChangedEvent(r.Snapshot(), events.ChangeCreated, actor.ProfileID))

	return r, nil
}

func (s *Service) Get(ctx context.Context, actor identity.AuthContext, id string) (*Request, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, r) {
		s.logger.Warn("request access denied", "request_id", id, "profile_id", actor.ProfileID, "role", actor.Role)
		return nil, internal.ErrAccessRestricted
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, actor identity.AuthContext, filter ListFilter) ([]*Request, int64, error) {
	q := Query{
		Visibility: VisibilityFor(actor),
		Department: strings.TrimSpace(filter.Department),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}

	switch filter.Scope {
	case ScopeActive:
		q.Statuses = ActiveStatuses
	case ScopeArchive:
		q.Statuses = ArchivedStatuses
	}

	if filter.Status != "" {
		st, ok := ParseStatus(filter.Status)
		if !ok {
			return nil, 0, internal.ErrInvalidStatus
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, st) {
			return []*Request{}, 0, nil
		}
		q.Statuses = []Status{st}
	}

	requests, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("failed to list requests", "error", err, "profile_id", actor.ProfileID)
		return nil, 0, err
	}
	return requests, total, nil
}

// Transition applies a review decision or a re-open. The write is
// conditional on the status the decision was made against.
func (s *Service) Transition(ctx context.Context, actor identity.AuthContext, id string, dto TransitionDTO) (*Request, error) {
	target, ok := ParseStatus(dto.Status)
	if !ok {
		return nil, internal.ErrInvalidStatus
	}

	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := r.Status

	if dto.ExpectedStatus != "" {
		expected, ok := ParseStatus(dto.ExpectedStatus)
		if !ok {
			return nil, internal.ErrInvalidStatus
		}
		if expected != from {
			metrics.RecordTransition(string(from), string(target), "conflict")
			return nil, internal.ErrStatusConflict
		}
	}

	if !IsReachable(from, target) {
		metrics.RecordTransition(string(from), string(target), "invalid")
		return nil, internal.NewInvalidTransitionError(fmt.Sprintf("Cannot move a request from %s to %s", from.Label(), target.Label()))
	}
	if from == StatusChangesRequested && target == StatusPending {
		return nil, internal.NewInvalidTransitionError("Resubmit the request with a fresh compliance score to return it to review")
	}
	if !CanTransition(actor, r, target) {
		metrics.RecordTransition(string(from), string(target), "forbidden")
		s.logger.Warn("transition not allowed",
			"request_id", id,
			"profile_id", actor.ProfileID,
			"role", actor.Role,
			"from", from,
			"to", target)
		return nil, internal.ErrActionNotAllowed
	}

	if err := s.repo.UpdateStatus(ctx, id, from, target); err != nil {
		if errors.Is(err, internal.ErrStatusConflict) {
			metrics.RecordTransition(string(from), string(target), "conflict")
		}
		return nil, err
	}
	metrics.RecordTransition(string(from), string(target), "applied")

	r.Status = target
	r.UpdatedAt = s.now()

	s.logger.Info("request status updated",
		"request_id", id,
		"from", from,
		"to", target,
		"actor_id", actor.ProfileID)

	line := fmt.Sprintf("Status updated to %s", target.Label())
	if note := strings.TrimSpace(dto.Note); note != "" {
		line += ": " + note
	}
	if err := s.comments.AddSystemComment(ctx, r.Snapshot(), line); err != nil {
		s.logger.Error("failed to record transition comment", "error", err, "request_id", id)
	}

	s.notifier.NotifyOwner(ctx, *r)
	s.publish(ctx, events.NewRequestChangedEvent(r.Snapshot(), events.ChangeStatusChanged, actor.ProfileID))

	return r, nil
}

// Resubmit stores the owner's edits and returns the request to pending.
func (s *Service) Resubmit(ctx context.Context, actor identity.AuthContext, id string, dto SubmitRequestDTO) (*Request, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.ProfileID != r.EmployeeID {
		return nil, internal.ErrActionNotAllowed
	}
	if r.Status != StatusChangesRequested {
		return nil, internal.NewInvalidTransitionError("Only requests with changes requested can be edited")
	}

	content, assessment, err := s.checkSubmission(ctx, actor, dto)
	if err != nil {
		return nil, err
	}

	updated := *r
	content.applyTo(&updated, assessment)
	updated.Status = StatusPending
	updated.UpdatedAt = s.now()

	if err := s.repo.Resubmit(ctx, &updated, StatusChangesRequested); err != nil {
		return nil, err
	}
	metrics.RecordTransition(string(StatusChangesRequested), string(StatusPending), "applied")

	s.logger.Info("request resubmitted", "request_id", id, "employee_id", actor.ProfileID, "ai_score", updated.AICompletenessScore)

	if err := s.comments.AddSystemComment(ctx, updated.Snapshot(), "Request resubmitted for review"); err != nil {
		s.logger.Error("failed to record resubmission comment", "error", err, "request_id", id)
	}

	s.notifier.NotifyReviewers(ctx, updated, ActionResubmitted)
	s.publish(ctx, events.NewRequestChangedEvent(updated.Snapshot(), events.ChangeResubmitted, actor.ProfileID))

	return &updated, nil
}

func (s *Service) Delete(ctx context.Context, actor identity.AuthContext, id string) error {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return internal.ErrAdminOnly
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete request", "error", err, "request_id", id)
		return err
	}

	s.logger.Info("request deleted", "request_id", id, "actor_id", actor.ProfileID)
	s.publish(ctx, events.NewRequestChangedEvent(r.Snapshot(), events.ChangeDeleted, actor.ProfileID))
	return nil
}

// Attachments resolves the stored attachment paths to downloadable URLs.
func (s *Service) Attachments(ctx context.Context, actor identity.AuthContext, id string) ([]Attachment, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	out := make([]Attachment, 0, len(r.Attachments))
	for _, p := range r.Attachments {
		url, err := s.attachments.URL(ctx, p)
		if err != nil {
			s.logger.Error("failed to resolve attachment", "error", err, "request_id", id, "path", p)
			return nil, internal.NewExternalError("Could not resolve attachment", internal.ErrCodeStorageFailed, err)
		}
		out = append(out, Attachment{Path: p, Name: s.attachments.DisplayName(p), URL: url})
	}
	return out, nil
}

type submission struct {
	title          string
	category       Category
	customCategory string
	department     string
	amount         decimal.Decimal
	description    string
	auditDate      time.Time
	attachments    []string
}

func (c submission) applyTo(r *Request, a scorer.Assessment) {
	r.Title = c.title
	r.Category = c.category
	r.CustomCategory = c.customCategory
	r.Department = c.department
	r.TotalAmount = c.amount
	r.Description = c.description
	r.AuditDate = c.auditDate
	r.Attachments = c.attachments
	r.AICompletenessScore = scorer.ClampScore(a.Score)
	r.AISummary = strings.Join(a.Summary, " • ")
	if strings.TrimSpace(r.AISummary) == "" {
		r.AISummary = pendingSummary
	}
	r.AIFeedback = a.Feedback
}

// checkSubmission validates a create or resubmit payload and verifies that
// its compliance score was computed on exactly this content.
func (s *Service) checkSubmission(ctx context.Context, actor identity.AuthContext, dto SubmitRequestDTO) (submission, scorer.Assessment, error) {
	if appErr := dto.Validate(); appErr != nil {
		return submission{}, scorer.Assessment{}, appErr
	}

	department := strings.TrimSpace(dto.Department)
	ok, err := s.departments.HasDepartment(ctx, actor.OrganizationID, department)
	if err != nil {
		return submission{}, scorer.Assessment{}, err
	}
	if !ok {
		return submission{}, scorer.Assessment{}, internal.NewValidationFieldError("department", "department does not exist in your organization", internal.ErrCodeInvalidDepartment)
	}

	attachments := make([]string, 0, len(dto.Attachments))
	for _, p := range dto.Attachments {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !s.attachments.OwnedBy(p, actor.ProfileID) {
			return submission{}, scorer.Assessment{}, internal.NewValidationFieldError("attachments", "attachment was not uploaded by you", internal.ErrCodeInvalidAttachment)
		}
		attachments = append(attachments, p)
	}

	assessment, err := s.scores.Verify(dto.ScoreToken, dto.ScoreInput())
	if err != nil {
		s.logger.Debug("stale compliance score", "profile_id", actor.ProfileID, "reason", err)
		return submission{}, scorer.Assessment{}, internal.ErrStaleScore
	}

	amount, _ := validation.ParseAmount(dto.TotalAmount.String())
	auditDate, _ := validation.ParseAuditDate(dto.AuditDate)

	category := Category(strings.ToLower(strings.TrimSpace(dto.Category)))
	customCategory := ""
	if category == CategoryOther {
		customCategory = strings.TrimSpace(dto.CustomCategory)
	}

	return submission{
		title:          strings.TrimSpace(dto.Title),
		category:       category,
		customCategory: customCategory,
		department:     department,
		amount:         amount,
		description:    strings.TrimSpace(dto.Description),
		auditDate:      auditDate,
		attachments:    attachments,
	}, assessment, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", event.EventType())
	}
}

func containsStatus(list []Status, st Status) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}
