package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/audit-workflow/internal/metrics"
)

var _ = Describe("Metrics", func() {
	It("labels HTTP metrics with the route pattern", func() {
		router := chi.NewRouter()
		router.Use(metrics.Middleware)
		router.Get("/requests/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		router.Method(http.MethodGet, "/metrics", metrics.Handler())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requests/abc", nil))
		Expect(rec.Code).To(Equal(http.StatusTeapot))

		metricsRec := httptest.NewRecorder()
		router.ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body, err := io.ReadAll(metricsRec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`route="/requests/{id}"`))
		Expect(string(body)).To(ContainSubstring(`status="418"`))
	})

	It("exposes domain counters", func() {
		metrics.RecordTransition("pending", "approved", "applied")
		metrics.RecordScorerCall("fallback", 0)

		rec := httptest.NewRecorder()
		metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Body.String()).To(ContainSubstring("audit_workflow_requests_transitions_total"))
		Expect(rec.Body.String()).To(ContainSubstring(`outcome="fallback"`))
	})
})
