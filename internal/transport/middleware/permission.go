package middleware

import (
	"net/http"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/transport"
	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

// RequireActive blocks suspended profiles.
func RequireActive(base *transport.BaseHandler) func(http.Handler) http.Handler {
	return require(base, func(actor identity.AuthContext) error {
		if actor.IsSuspended() {
			return internal.ErrAccountSuspended
		}
		return nil
	})
}

// RequireDepartment blocks non-admins that have not finished profile setup.
func RequireDepartment(base *transport.BaseHandler) func(http.Handler) http.Handler {
	return require(base, func(actor identity.AuthContext) error {
		if actor.NeedsDepartment() {
			return internal.ErrDepartmentRequired
		}
		return nil
	})
}

func RequireAdmin(base *transport.BaseHandler) func(http.Handler) http.Handler {
	return require(base, func(actor identity.AuthContext) error {
		if !actor.IsAdmin() {
			return internal.ErrAdminOnly
		}
		return nil
	})
}

func require(base *transport.BaseHandler, check func(identity.AuthContext) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := base.Actor(w, r)
			if !ok {
				return
			}
			if err := check(actor); err != nil {
				logger.From(r.Context()).Warn("access denied", "path", r.URL.Path, "role", actor.Role, "error", err)
				base.HandleServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
