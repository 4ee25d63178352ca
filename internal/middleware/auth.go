package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/cache"
	"github.com/forkful/forkful/internal/metrics"
	"github.com/forkful/forkful/internal/model"
)

const (
	// minAuthDuration is the floor for rejected authentication attempts.
	// Padding every rejection to the same duration hides how far
	// verification got (missing header, unknown prefix, wrong secret).
	minAuthDuration = 200 * time.Millisecond

	// lastUsedTimeout bounds the async last-used update.
	lastUsedTimeout = 5 * time.Second
)

// TokenVerifier is the subset of the repository the auth middleware
// needs to resolve a presented token.
type TokenVerifier interface {
	GetAuthTokensByPrefix(ctx context.Context, prefix string) ([]*model.AuthToken, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateAuthTokenLastUsed(ctx context.Context, id string) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger     *slog.Logger
	Repository TokenVerifier
	Cache      *cache.Cache
	Metrics    metrics.Recorder
}

// Auth returns a middleware that authenticates API requests.
// It extracts the bearer token from the Authorization header,
// verifies it, and injects the auth context into the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// All rejection paths funnel through here. The sleep runs
			// before the response is written so the padding holds.
			deny := func(reason string) {
				if reason != "" {
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", reason),
						slog.String("ip", r.RemoteAddr),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
				if elapsed := time.Since(start); elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
				writeAuthError(w)
			}

			// Extract token from header
			token := extractToken(r)
			if token == "" {
				deny("missing_token")
				return
			}

			// Validate token format
			parsed, err := auth.ParseToken(token)
			if err != nil {
				deny("invalid_format")
				return
			}

			// Check cache first
			cacheKey := auth.QuickHash(token)
			authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), cacheKey)

			if authCtx != nil {
				cfg.Metrics.IncAuthCacheHit()
				cfg.Logger.Info("authentication successful",
					slog.String("token_id", authCtx.TokenID),
					slog.String("token_prefix", authCtx.TokenPrefix),
					slog.String("user_id", authCtx.UserID),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Bool("cache_hit", true),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				ctx := auth.ContextWithAuth(r.Context(), authCtx)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			cfg.Metrics.IncAuthCacheMiss()

			// Cache miss - lookup candidates by prefix
			candidates, err := cfg.Repository.GetAuthTokensByPrefix(r.Context(), parsed.Prefix)
			if err != nil {
				cfg.Logger.Error("database error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				deny("")
				return
			}

			// Verify against each candidate (handles prefix collisions)
			var matched *model.AuthToken
			for _, candidate := range candidates {
				match, err := auth.VerifyPassword(token, candidate.TokenHash)
				if err != nil {
					continue
				}
				if match {
					matched = candidate
					break
				}
			}

			if matched == nil {
				deny("invalid_token")
				return
			}

			// The token is real; the account behind it must still be
			// allowed in.
			user, err := cfg.Repository.GetUserByID(r.Context(), matched.UserID)
			if err != nil {
				deny("unknown_user")
				return
			}
			if !user.IsActive {
				deny("inactive_user")
				return
			}

			authCtx = &model.AuthContext{
				TokenID:     matched.ID,
				TokenPrefix: matched.TokenPrefix,
				UserID:      user.ID,
				IsStaff:     user.IsStaff,
				IsSuperuser: user.IsSuperuser,
			}

			// Cache the result. Inactive accounts never reach this
			// point, so a cached context always belonged to an active
			// user at verification time.
			_ = cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx)

			// Update last_used_at asynchronously. The request context
			// dies with the response, so use a fresh one.
			go func(tokenID string) {
				updateCtx, cancel := context.WithTimeout(context.Background(), lastUsedTimeout)
				defer cancel()
				_ = cfg.Repository.UpdateAuthTokenLastUsed(updateCtx, tokenID)
			}(matched.ID)

			cfg.Logger.Info("authentication successful",
				slog.String("token_id", authCtx.TokenID),
				slog.String("token_prefix", authCtx.TokenPrefix),
				slog.String("user_id", authCtx.UserID),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Bool("cache_hit", false),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the auth token from the Authorization header.
// Both "Token <value>" and "Bearer <value>" schemes are accepted.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	scheme, value, found := strings.Cut(header, " ")
	if !found {
		return ""
	}

	switch scheme {
	case "Token", "Bearer":
		return strings.TrimSpace(value)
	}

	return ""
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing authentication token")
}
