package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/rs/cors"

	"github.com/frahmantamala/audit-workflow/internal/auth"
	"github.com/frahmantamala/audit-workflow/internal/comment"
	"github.com/frahmantamala/audit-workflow/internal/dashboard"
	"github.com/frahmantamala/audit-workflow/internal/metrics"
	"github.com/frahmantamala/audit-workflow/internal/notification"
	"github.com/frahmantamala/audit-workflow/internal/organization"
	"github.com/frahmantamala/audit-workflow/internal/profile"
	"github.com/frahmantamala/audit-workflow/internal/realtime"
	"github.com/frahmantamala/audit-workflow/internal/request"
	"github.com/frahmantamala/audit-workflow/internal/scorer"
	"github.com/frahmantamala/audit-workflow/internal/storage"
	"github.com/frahmantamala/audit-workflow/internal/transport"
	"github.com/frahmantamala/audit-workflow/internal/transport/middleware"
	"github.com/frahmantamala/audit-workflow/internal/transport/swagger"
)

// Handlers bundles every HTTP surface mounted under /api/v1. Nil handlers
// are skipped.
type Handlers struct {
	Auth          *auth.Handler
	Authenticator middleware.Authenticator
	Profile       *profile.Handler
	Organization  *organization.Handler
	Request       *request.Handler
	Comment       *comment.Handler
	Scorer        *scorer.Handler
	Storage       *storage.Handler
	Notification  *notification.Handler
	Dashboard     *dashboard.Handler
	Realtime      *realtime.Hub
}

type Options struct {
	AllowedOrigins []string
	MetricsEnabled bool
	MetricsPath    string
}

// ParseOrigins splits a comma separated origin list.
func ParseOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts Options, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	base := transport.NewBaseHandler(logger)

	router.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.TraceHeader},
		ExposedHeaders:   []string{middleware.TraceHeader},
		AllowCredentials: true,
	}).Handler)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if opts.MetricsEnabled {
		router.Use(metrics.Middleware)
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, metrics.Handler())
	}

	router.Get("/openapi.yml", swagger.SpecHandler)
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/signup", h.Auth.SignUp)
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/password/forgot", h.Auth.ForgotPassword)
				sr.Post("/password/reset", h.Auth.ResetPassword)
			})
		}

		if h.Authenticator == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(h.Authenticator, base))

			if h.Auth != nil {
				pr.Post("/auth/logout", h.Auth.Logout)
			}

			pr.Group(func(ar chi.Router) {
				ar.Use(middleware.RequireActive(base))
				registerActiveRoutes(ar, h, base)
			})
		})
	})
}

func registerActiveRoutes(r chi.Router, h Handlers, base *transport.BaseHandler) {
	if h.Profile != nil {
		r.Get("/profile/me", h.Profile.GetMe)
		r.Patch("/profile/me", h.Profile.UpdateMe)
		r.Put("/profile/me/department", h.Profile.AssignDepartment)
	}
	if h.Organization != nil {
		r.Get("/departments", h.Organization.GetDepartments)
	}

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(base))
		if h.Organization != nil {
			admin.Post("/departments", h.Organization.CreateDepartment)
		}
		if h.Profile != nil {
			admin.Get("/admin/profiles", h.Profile.ListProfiles)
			admin.Patch("/admin/profiles/{id}", h.Profile.UpdateProfile)
		}
	})

	r.Group(func(dr chi.Router) {
		dr.Use(middleware.RequireDepartment(base))

		if h.Request != nil {
			dr.Route("/requests", func(rr chi.Router) {
				rr.Get("/", h.Request.List)
				rr.Post("/", h.Request.Create)
				if h.Scorer != nil {
					rr.Post("/score", h.Scorer.Score)
				}
				rr.Get("/{id}", h.Request.Get)
				rr.Put("/{id}", h.Request.Resubmit)
				rr.Delete("/{id}", h.Request.Delete)
				rr.Patch("/{id}/status", h.Request.UpdateStatus)
				rr.Get("/{id}/attachments", h.Request.Attachments)
				if h.Comment != nil {
					rr.Get("/{id}/comments", h.Comment.List)
					rr.Post("/{id}/comments", h.Comment.Add)
				}
			})
		}

		if h.Storage != nil {
			dr.Post("/attachments", h.Storage.Upload)
		}

		if h.Notification != nil {
			dr.Route("/notifications", func(nr chi.Router) {
				nr.Get("/", h.Notification.List)
				nr.Delete("/", h.Notification.Clear)
				nr.Get("/unread-count", h.Notification.UnreadCount)
				nr.Post("/read-all", h.Notification.MarkAllRead)
				nr.Patch("/{id}/read", h.Notification.MarkRead)
				nr.Delete("/{id}", h.Notification.Delete)
			})
		}

		if h.Dashboard != nil {
			dr.Get("/dashboard/stats", h.Dashboard.GetStats)
		}

		if h.Realtime != nil {
			dr.Get("/realtime", h.Realtime.ServeWS)
		}
	})
}
