package comment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/comment"
	commentPostgres "github.com/frahmantamala/audit-workflow/internal/comment/postgres"
	commentDatamodel "github.com/frahmantamala/audit-workflow/internal/core/datamodel/comment"
	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/request"
	"github.com/frahmantamala/audit-workflow/internal/transport"
)

type stubRequests map[string]*request.Request

func (s stubRequests) GetByID(_ context.Context, id string) (*request.Request, error) {
	r, ok := s[id]
	if !ok {
		return nil, internal.ErrRequestNotFound
	}
	return r, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func member(id string, role identity.Role, department string) identity.AuthContext {
	return identity.AuthContext{
		ProfileID:      id,
		FullName:       "Name " + id,
		Role:           role,
		Department:     department,
		OrganizationID: "org-1",
		Status:         identity.StatusActive,
	}
}

var _ = Describe("Comment Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		publisher *capturePublisher
		service   *comment.Service
		owned     *request.Request
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&commentDatamodel.Comment{})).To(Succeed())

		owned = &request.Request{
			ID:             "req-1",
			OrganizationID: "org-1",
			EmployeeID:     "emp-1",
			Department:     "Engineering",
			Status:         request.StatusPending,
		}
		publisher = &capturePublisher{}
		testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = comment.NewService(commentPostgres.NewCommentRepository(db), stubRequests{"req-1": owned}, publisher, testLogger)
	})

	It("appends comments from people who can see the request", func() {
		c, err := service.Add(ctx, member("mgr-1", identity.RoleManager, "Engineering"), "req-1", comment.AddCommentDTO{Content: "  Please attach the invoice "})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Content).To(Equal("Please attach the invoice"))
		Expect(*c.AuthorID).To(Equal("mgr-1"))
		Expect(c.IsSystem).To(BeFalse())

		Expect(publisher.events).To(HaveLen(1))
		added, ok := publisher.events[0].(*events.CommentAddedEvent)
		Expect(ok).To(BeTrue())
		Expect(added.Request.EmployeeID).To(Equal("emp-1"))
	})

	It("refuses people who cannot see the request", func() {
		_, err := service.Add(ctx, member("emp-2", identity.RoleEmployee, "Engineering"), "req-1", comment.AddCommentDTO{Content: "hi"})
		Expect(errors.Is(err, internal.ErrAccessRestricted)).To(BeTrue())

		_, err = service.List(ctx, member("mgr-2", identity.RoleManager, "Operations"), "req-1")
		Expect(errors.Is(err, internal.ErrAccessRestricted)).To(BeTrue())

		_, err = service.List(ctx, member("adm-1", identity.RoleAdmin, identity.GeneralDepartment), "req-404")
		Expect(errors.Is(err, internal.ErrRequestNotFound)).To(BeTrue())
	})

	It("rejects empty comments", func() {
		_, err := service.Add(ctx, member("emp-1", identity.RoleEmployee, "Engineering"), "req-1", comment.AddCommentDTO{Content: "   "})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
	})

	It("keeps system lines in the thread in order", func() {
		Expect(service.AddSystemComment(ctx, owned.Snapshot(), "Status updated to changes requested")).To(Succeed())
		time.Sleep(5 * time.Millisecond)
		_, err := service.Add(ctx, member("emp-1", identity.RoleEmployee, "Engineering"), "req-1", comment.AddCommentDTO{Content: "Invoice attached"})
		Expect(err).NotTo(HaveOccurred())

		thread, err := service.List(ctx, member("emp-1", identity.RoleEmployee, "Engineering"), "req-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(thread).To(HaveLen(2))
		Expect(thread[0].IsSystem).To(BeTrue())
		Expect(thread[0].AuthorID).To(BeNil())
		Expect(thread[0].AuthorName).To(Equal(comment.SystemAuthorName))
		Expect(thread[1].Content).To(Equal("Invoice attached"))
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			handler := comment.NewHandler(&transport.BaseHandler{Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))}, service)
			router = chi.NewRouter()
			router.Get("/requests/{id}/comments", handler.List)
			router.Post("/requests/{id}/comments", handler.Add)
		})

		as := func(req *http.Request, actor identity.AuthContext) *http.Request {
			return req.WithContext(identity.WithContext(req.Context(), actor))
		}

		It("creates a comment and lists it back", func() {
			body, _ := json.Marshal(comment.AddCommentDTO{Content: "Looks good"})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, as(httptest.NewRequest(http.MethodPost, "/requests/req-1/comments", bytes.NewReader(body)), member("adm-1", identity.RoleAdmin, identity.GeneralDepartment)))
			Expect(w.Code).To(Equal(http.StatusCreated))

			w = httptest.NewRecorder()
			router.ServeHTTP(w, as(httptest.NewRequest(http.MethodGet, "/requests/req-1/comments", nil), member("emp-1", identity.RoleEmployee, "Engineering")))
			Expect(w.Code).To(Equal(http.StatusOK))

			var response comment.CommentsResponse
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.Comments).To(HaveLen(1))
			Expect(response.Comments[0].AuthorName).To(Equal("Name adm-1"))
		})

		It("answers 403 for restricted requests", func() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, as(httptest.NewRequest(http.MethodGet, "/requests/req-1/comments", nil), member("emp-9", identity.RoleEmployee, "Engineering")))
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("answers 401 without an authenticated caller", func() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests/req-1/comments", nil))
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
