package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/dashboard"
	"github.com/frahmantamala/audit-workflow/internal/transport"
	"github.com/frahmantamala/audit-workflow/internal/transport/rest"
	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

type tokenActors map[string]identity.AuthContext

func (t tokenActors) Authenticate(_ context.Context, token string) (identity.AuthContext, error) {
	if a, ok := t[token]; ok {
		return a, nil
	}
	return identity.AuthContext{}, internal.ErrInvalidToken
}

type fixedStats struct{}

func (fixedStats) Stats(context.Context, identity.AuthContext, time.Time) (dashboard.Stats, error) {
	return dashboard.Compute(nil, time.Now()), nil
}

var _ = Describe("Router", func() {
	var (
		router *chi.Mux
		mock   sqlmock.Sqlmock
	)

	BeforeEach(func() {
		db, m, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		Expect(err).NotTo(HaveOccurred())
		mock = m
		DeferCleanup(db.Close)

		lg := logger.Discard()
		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, db, rest.Handlers{
			Authenticator: tokenActors{
				"employee": {ProfileID: "emp-1", Role: identity.RoleEmployee, Department: "Engineering", OrganizationID: "org-1", Status: identity.StatusActive},
				"newcomer": {ProfileID: "emp-2", Role: identity.RoleEmployee, OrganizationID: "org-1", Status: identity.StatusActive},
			},
			Dashboard: dashboard.NewHandler(transport.NewBaseHandler(lg), fixedStats{}),
		}, rest.Options{AllowedOrigins: rest.ParseOrigins("")}, lg)
	})

	serve := func(method, target, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("answers liveness without touching the database", func() {
		rec := serve(http.MethodGet, "/api/v1/ping", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("reports readiness from a database ping", func() {
		mock.ExpectPing()
		rec := serve(http.MethodGet, "/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var body rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Status).To(Equal(rest.HealthHealthy))
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("reports an unreachable database as unavailable", func() {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		rec := serve(http.MethodGet, "/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("requires a token for protected routes", func() {
		rec := serve(http.MethodGet, "/api/v1/dashboard/stats", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("applies the department gate to request-scoped routes", func() {
		rec := serve(http.MethodGet, "/api/v1/dashboard/stats", "newcomer")
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec = serve(http.MethodGet, "/api/v1/dashboard/stats", "employee")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("serves the OpenAPI document", func() {
		rec := serve(http.MethodGet, "/openapi.yml", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
