package middleware

import (
	"net/http"

	"github.com/forkful/forkful/internal/auth"
)

// RequireStaff returns middleware that restricts a route to staff
// accounts. Must be applied after Auth middleware. Superusers pass
// regardless of the staff flag.
func RequireStaff() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !authCtx.IsStaff && !authCtx.IsSuperuser {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Staff access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
