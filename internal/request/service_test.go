package request_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/request"
	"github.com/frahmantamala/audit-workflow/internal/scorer"
)

type mockRepository struct {
	mu       sync.Mutex
	requests map[string]*request.Request
	failWith error
}

func newMockRepository() *mockRepository {
	return &mockRepository{requests: make(map[string]*request.Request)}
}

func (m *mockRepository) Create(_ context.Context, r *request.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	stored := *r
	m.requests[r.ID] = &stored
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*request.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, internal.ErrRequestNotFound
	}
	out := *r
	return &out, nil
}

func (m *mockRepository) List(_ context.Context, q request.Query) ([]*request.Request, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*request.Request
	for _, r := range m.requests {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (m *mockRepository) UpdateStatus(_ context.Context, id string, from, to request.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return internal.ErrRequestNotFound
	}
	if r.Status != from {
		return internal.ErrStatusConflict
	}
	r.Status = to
	return nil
}

func (m *mockRepository) Resubmit(_ context.Context, r *request.Request, from request.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[r.ID]
	if !ok {
		return internal.ErrRequestNotFound
	}
	if stored.Status != from {
		return internal.ErrStatusConflict
	}
	updated := *r
	updated.EmployeeID = stored.EmployeeID
	m.requests[r.ID] = &updated
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return internal.ErrRequestNotFound
	}
	delete(m.requests, id)
	return nil
}

func (m *mockRepository) status(id string) request.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

// fakeScores accepts tokens of the form "score:<n>:<fingerprint>".
type fakeScores struct{}

func (fakeScores) Verify(token string, in scorer.Input) (scorer.Assessment, error) {
	var score int
	var fingerprint string
	if _, err := fmt.Sscanf(token, "score:%d:%s", &score, &fingerprint); err != nil {
		return scorer.Assessment{}, scorer.ErrTokenInvalid
	}
	if fingerprint != in.Fingerprint() {
		return scorer.Assessment{}, scorer.ErrFingerprintMismatch
	}
	return scorer.Assessment{Score: score, Summary: []string{"dates align", "receipt attached", "category fits"}}, nil
}

func tokenFor(dto request.SubmitRequestDTO, score int) string {
	return fmt.Sprintf("score:%d:%s", score, dto.ScoreInput().Fingerprint())
}

type fakeDepartments struct{ names []string }

func (f fakeDepartments) HasDepartment(_ context.Context, _ string, name string) (bool, error) {
	for _, n := range f.names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

type recordingCommenter struct {
	mu    sync.Mutex
	lines []string
}

func (c *recordingCommenter) AddSystemComment(_ context.Context, _ events.RequestSnapshot, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, content)
	return nil
}

type notification struct {
	kind   string
	action request.SubmitAction
	status request.Status
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyReviewers(_ context.Context, r request.Request, action request.SubmitAction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind: "reviewers", action: action, status: r.Status})
}

func (n *recordingNotifier) NotifyOwner(_ context.Context, r request.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind: "owner", status: r.Status})
}

type fakeAttachments struct{}

func (fakeAttachments) OwnedBy(path, uploaderID string) bool {
	return strings.HasPrefix(path, uploaderID+"/")
}

func (fakeAttachments) DisplayName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func (fakeAttachments) URL(_ context.Context, path string) (string, error) {
	return "https://files.example.com/" + path, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func validSubmission() request.SubmitRequestDTO {
	dto := request.SubmitRequestDTO{
		Title:       "Laptop",
		Category:    "purchase",
		Department:  "IT Support",
		TotalAmount: json.Number("4500"),
		Description: "Replacement laptop for the support rotation.",
		AuditDate:   "2024-06-01",
		Attachments: []string{"emp-1/1717200000000_quote.pdf"},
	}
	dto.ScoreToken = tokenFor(dto, 84)
	return dto
}

func validationFields(err error) []string {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue())
	details, ok := appErr.Details.(internal.ValidationErrors)
	Expect(ok).To(BeTrue())
	var fields []string
	for _, e := range details.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

var _ = Describe("Request Service", func() {
	var (
		ctx       context.Context
		repo      *mockRepository
		comments  *recordingCommenter
		notifier  *recordingNotifier
		publisher *recordingPublisher
		service   *request.Service

		employee identity.AuthContext
		manager  identity.AuthContext
		finance  identity.AuthContext
		admin    identity.AuthContext
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		comments = &recordingCommenter{}
		notifier = &recordingNotifier{}
		publisher = &recordingPublisher{}

		testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = request.NewService(request.Dependencies{
			Repository:  repo,
			Scores:      fakeScores{},
			Departments: fakeDepartments{names: []string{"IT Support", "Finance & Accounting", "Engineering"}},
			Comments:    comments,
			Notifier:    notifier,
			Attachments: fakeAttachments{},
			Publisher:   publisher,
			Logger:      testLogger,
		})

		employee = actor("emp-1", identity.RoleEmployee, "Engineering")
		manager = actor("mgr-1", identity.RoleManager, "IT Support")
		finance = actor("mgr-2", identity.RoleManager, "Finance & Accounting")
		admin = actor("adm-1", identity.RoleAdmin, identity.GeneralDepartment)
	})

	Describe("Create", func() {
		It("stores a pending request owned by the caller and fans out", func() {
			created, err := service.Create(ctx, employee, validSubmission())

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Status).To(Equal(request.StatusPending))
			Expect(created.EmployeeID).To(Equal("emp-1"))
			Expect(created.OrganizationID).To(Equal(orgID))
			Expect(created.TotalAmount.String()).To(Equal("4500"))
			Expect(created.AICompletenessScore).To(Equal(84))
			Expect(created.AISummary).To(Equal("dates align • receipt attached • category fits"))

			Expect(notifier.sent).To(ConsistOf(notification{kind: "reviewers", action: request.ActionCreated, status: request.StatusPending}))
			Expect(publisher.events).To(HaveLen(1))
			Expect(publisher.events[0].EventType()).To(Equal(events.EventTypeRequestChanged))
		})

		It("reports every invalid field at once", func() {
			dto := validSubmission()
			dto.Title = " "
			dto.TotalAmount = json.Number("-5")
			dto.AuditDate = "2024-02-31"

			_, err := service.Create(ctx, employee, dto)
			Expect(err).To(HaveOccurred())
			Expect(validationFields(err)).To(ConsistOf("title", "total_amount", "audit_date"))
			Expect(notifier.sent).To(BeEmpty())
		})

		It("rejects departments outside the organization", func() {
			dto := validSubmission()
			dto.Department = "Moonbase"
			dto.ScoreToken = tokenFor(dto, 84)

			_, err := service.Create(ctx, employee, dto)
			Expect(validationFields(err)).To(ConsistOf("department"))
		})

		It("rejects attachments uploaded by someone else", func() {
			dto := validSubmission()
			dto.Attachments = []string{"emp-2/1717200000000_quote.pdf"}
			dto.ScoreToken = tokenFor(dto, 84)

			_, err := service.Create(ctx, employee, dto)
			Expect(validationFields(err)).To(ConsistOf("attachments"))
		})

		It("requires a score computed on the submitted content", func() {
			dto := validSubmission()
			dto.Description = "Edited after scoring"

			_, err := service.Create(ctx, employee, dto)
			Expect(errors.Is(err, internal.ErrStaleScore)).To(BeTrue())

			dto.ScoreToken = ""
			_, err = service.Create(ctx, employee, dto)
			Expect(errors.Is(err, internal.ErrStaleScore)).To(BeTrue())
		})

		It("accepts a zero fallback score", func() {
			dto := validSubmission()
			dto.ScoreToken = tokenFor(dto, 0)

			created, err := service.Create(ctx, employee, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.AICompletenessScore).To(BeZero())
		})
	})

	Describe("Get", func() {
		var created *request.Request

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, employee, validSubmission())
			Expect(err).NotTo(HaveOccurred())
		})

		It("separates missing from restricted", func() {
			_, err := service.Get(ctx, admin, "missing")
			Expect(errors.Is(err, internal.ErrRequestNotFound)).To(BeTrue())

			_, err = service.Get(ctx, finance, created.ID)
			Expect(errors.Is(err, internal.ErrAccessRestricted)).To(BeTrue())
		})

		It("lets the department manager read the request", func() {
			got, err := service.Get(ctx, manager, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Laptop"))
		})
	})

	Describe("Transition", func() {
		var created *request.Request

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, employee, validSubmission())
			Expect(err).NotTo(HaveOccurred())
			notifier.sent = nil
			publisher.events = nil
		})

		It("approves, logs a system comment and notifies only the owner", func() {
			updated, err := service.Transition(ctx, admin, created.ID, request.TransitionDTO{Status: "approved"})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(request.StatusApproved))
			Expect(updated.EmployeeID).To(Equal("emp-1"))
			Expect(repo.status(created.ID)).To(Equal(request.StatusApproved))
			Expect(comments.lines).To(ConsistOf("Status updated to approved"))
			Expect(notifier.sent).To(ConsistOf(notification{kind: "owner", status: request.StatusApproved}))
		})

		It("appends the reviewer note to the system comment", func() {
			_, err := service.Transition(ctx, manager, created.ID, request.TransitionDTO{Status: "changes_requested", Note: "attach the invoice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(comments.lines).To(ConsistOf("Status updated to changes requested: attach the invoice"))
		})

		It("rejects moves outside the table without touching the request", func() {
			_, err := service.Transition(ctx, admin, created.ID, request.TransitionDTO{Status: "draft"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInvalidTransition))
			Expect(repo.status(created.ID)).To(Equal(request.StatusPending))
			Expect(notifier.sent).To(BeEmpty())
		})

		It("forbids an employee from approving their own request", func() {
			_, err := service.Transition(ctx, employee, created.ID, request.TransitionDTO{Status: "approved"})
			Expect(errors.Is(err, internal.ErrActionNotAllowed)).To(BeTrue())
			Expect(repo.status(created.ID)).To(Equal(request.StatusPending))
		})

		It("hides the request from managers of other departments", func() {
			_, err := service.Transition(ctx, finance, created.ID, request.TransitionDTO{Status: "approved"})
			Expect(errors.Is(err, internal.ErrAccessRestricted)).To(BeTrue())
		})

		It("fails with a conflict when the expected status is stale", func() {
			_, err := service.Transition(ctx, manager, created.ID, request.TransitionDTO{Status: "rejected", ExpectedStatus: "pending"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Transition(ctx, admin, created.ID, request.TransitionDTO{Status: "changes_requested", ExpectedStatus: "pending"})
			Expect(errors.Is(err, internal.ErrStatusConflict)).To(BeTrue())
			Expect(repo.status(created.ID)).To(Equal(request.StatusRejected))
		})

		It("lets only admins re-open archived requests", func() {
			_, err := service.Transition(ctx, manager, created.ID, request.TransitionDTO{Status: "approved"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Transition(ctx, manager, created.ID, request.TransitionDTO{Status: "changes_requested"})
			Expect(errors.Is(err, internal.ErrActionNotAllowed)).To(BeTrue())

			reopened, err := service.Transition(ctx, admin, created.ID, request.TransitionDTO{Status: "changes_requested"})
			Expect(err).NotTo(HaveOccurred())
			Expect(reopened.Status).To(Equal(request.StatusChangesRequested))
		})

		It("sends changes_requested to pending through resubmit", func() {
			_, err := service.Transition(ctx, manager, created.ID, request.TransitionDTO{Status: "changes_requested"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Transition(ctx, employee, created.ID, request.TransitionDTO{Status: "pending"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInvalidTransition))
		})

		It("rejects unknown target statuses", func() {
			_, err := service.Transition(ctx, admin, created.ID, request.TransitionDTO{Status: "archived"})
			Expect(errors.Is(err, internal.ErrInvalidStatus)).To(BeTrue())
		})
	})

	Describe("Resubmit", func() {
		var created *request.Request

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, employee, validSubmission())
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Transition(ctx, manager, created.ID, request.TransitionDTO{Status: "changes_requested"})
			Expect(err).NotTo(HaveOccurred())
			notifier.sent = nil
		})

		It("returns the edited request to pending and fans out again", func() {
			dto := validSubmission()
			dto.Description = "Replacement laptop, quote from the approved vendor attached."
			dto.Attachments = append(dto.Attachments, "emp-1/1717300000000_vendor_quote.pdf")
			dto.ScoreToken = tokenFor(dto, 92)

			updated, err := service.Resubmit(ctx, employee, created.ID, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(request.StatusPending))
			Expect(updated.EmployeeID).To(Equal("emp-1"))
			Expect(updated.AICompletenessScore).To(Equal(92))
			Expect(updated.Attachments).To(HaveLen(2))
			Expect(notifier.sent).To(ConsistOf(notification{kind: "reviewers", action: request.ActionResubmitted, status: request.StatusPending}))
			Expect(repo.status(created.ID)).To(Equal(request.StatusPending))
		})

		It("is blocked until the edited content has been scored", func() {
			dto := validSubmission()
			dto.TotalAmount = json.Number("4200")

			_, err := service.Resubmit(ctx, employee, created.ID, dto)
			Expect(errors.Is(err, internal.ErrStaleScore)).To(BeTrue())
			Expect(repo.status(created.ID)).To(Equal(request.StatusChangesRequested))
		})

		It("is reserved to the owner", func() {
			_, err := service.Resubmit(ctx, admin, created.ID, validSubmission())
			Expect(errors.Is(err, internal.ErrActionNotAllowed)).To(BeTrue())
		})

		It("is refused unless changes were requested", func() {
			_, err := service.Resubmit(ctx, employee, created.ID, validSubmission())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Resubmit(ctx, employee, created.ID, validSubmission())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInvalidTransition))
		})
	})

	Describe("Delete", func() {
		It("is admin only", func() {
			created, err := service.Create(ctx, employee, validSubmission())
			Expect(err).NotTo(HaveOccurred())

			Expect(errors.Is(service.Delete(ctx, employee, created.ID), internal.ErrAdminOnly)).To(BeTrue())
			Expect(service.Delete(ctx, admin, created.ID)).To(Succeed())

			_, err = service.Get(ctx, admin, created.ID)
			Expect(errors.Is(err, internal.ErrRequestNotFound)).To(BeTrue())
		})
	})

	Describe("Attachments", func() {
		It("resolves stored paths to URLs", func() {
			created, err := service.Create(ctx, employee, validSubmission())
			Expect(err).NotTo(HaveOccurred())

			attachments, err := service.Attachments(ctx, manager, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(attachments).To(ConsistOf(request.Attachment{
				Path: "emp-1/1717200000000_quote.pdf",
				Name: "1717200000000_quote.pdf",
				URL:  "https://files.example.com/emp-1/1717200000000_quote.pdf",
			}))
		})
	})

	Describe("List", func() {
		It("rejects unknown status filters", func() {
			_, _, err := service.List(ctx, admin, request.ListFilter{Status: "closed"})
			Expect(errors.Is(err, internal.ErrInvalidStatus)).To(BeTrue())
		})

		It("returns nothing when the status is outside the scope", func() {
			_, err := service.Create(ctx, employee, validSubmission())
			Expect(err).NotTo(HaveOccurred())

			requests, total, err := service.List(ctx, admin, request.ListFilter{Scope: request.ScopeArchive, Status: "pending"})
			Expect(err).NotTo(HaveOccurred())
			Expect(requests).To(BeEmpty())
			Expect(total).To(BeZero())
		})
	})
})
