package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/transport"
	"github.com/frahmantamala/audit-workflow/pkg/logger"
)

// Authenticator resolves a bearer token to the current actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.AuthContext, error)
}

// Authenticate puts the caller's AuthContext on the request context. The
// profile is reloaded on every request so role and status changes apply at once.
func Authenticate(authenticator Authenticator, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := transport.ExtractToken(r)
			if token == "" {
				base.HandleServiceError(w, r, internal.NewUnauthorizedError("Missing authorization token", internal.ErrCodeInvalidToken))
				return
			}

			actor, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				base.HandleServiceError(w, r, err)
				return
			}

			ctx := identity.WithContext(r.Context(), actor)
			ctx = logger.With(ctx, "profile_id", actor.ProfileID, "organization_id", actor.OrganizationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
