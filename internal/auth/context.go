package auth

import (
	"context"

	"github.com/forkful/forkful/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const authContextKey contextKey = "auth_context"

// ContextWithAuth returns a context carrying the resolved identity.
// The auth middleware calls this once per authenticated request.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext returns the identity attached to the context, or nil
// on an unauthenticated request.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// MustAuthFromContext is AuthFromContext for handlers that only run
// behind the auth middleware. Panics when the identity is missing,
// which means the route was mounted outside the authenticated group.
func MustAuthFromContext(ctx context.Context) *model.AuthContext {
	auth := AuthFromContext(ctx)
	if auth == nil {
		panic("auth context not found - ensure auth middleware is applied")
	}
	return auth
}

// UserIDFromContext returns the authenticated user id, or "" on an
// unauthenticated request.
func UserIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.UserID
	}
	return ""
}

// TokenIDFromContext returns the id of the presenting token, or "" on
// an unauthenticated request.
func TokenIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.TokenID
	}
	return ""
}
