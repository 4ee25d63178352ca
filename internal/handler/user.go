package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forkful/forkful/internal/audit"
	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/handler/dto"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/service"
)

// minLoginDuration floors the response time of rejected logins so the
// duration does not reveal whether the email exists. Matches the auth
// middleware floor.
const minLoginDuration = 200 * time.Millisecond

// UserHandler handles registration, login and account management.
type UserHandler struct {
	svc    *service.UserService
	audit  *audit.Publisher
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, publisher *audit.Publisher, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		audit:  publisher,
		logger: logger,
	}
}

// Register handles POST /api/v1/users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_registered", "user_id", user.ID)

	publishAudit(h.audit, r, user.ID, model.AuditActionCreated, model.AuditObjectUser, user.ID, "registered "+user.Email)

	writeJSON(w, http.StatusCreated, user.ToResponse())
}

// Login handles POST /api/v1/users/token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	out, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		TokenName: req.TokenName,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// Floor rejected logins; unknown emails return as fast as
			// wrong passwords otherwise
			if elapsed := time.Since(start); elapsed < minLoginDuration {
				time.Sleep(minLoginDuration - elapsed)
			}
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
			return
		}
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("token_issued",
		"user_id", out.User.ID,
		"token_id", out.Record.ID,
		"token_prefix", out.Record.TokenPrefix,
	)

	publishAudit(h.audit, r, out.User.ID, model.AuditActionCreated, model.AuditObjectToken, out.Record.ID, "token issued")

	// Plaintext is shown once and never stored
	writeJSON(w, http.StatusOK, model.AuthTokenCreateResponse{
		ID:          out.Record.ID,
		Token:       out.Token,
		TokenPrefix: out.Record.TokenPrefix,
		Name:        out.Record.Name,
		CreatedAt:   out.Record.CreatedAt,
	})
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.svc.GetMe(r.Context(), authCtx.UserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToResponse())
}

// UpdateMe handles PATCH /api/v1/users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.svc.UpdateMe(r.Context(), service.UpdateMeInput{
		UserID:   authCtx.UserID,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_updated", "user_id", user.ID)

	publishAudit(h.audit, r, user.ID, model.AuditActionUpdated, model.AuditObjectUser, user.ID, "profile updated")

	writeJSON(w, http.StatusOK, user.ToResponse())
}

// Logout handles DELETE /api/v1/users/token.
// Revokes the token presented on this request.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	// Recompute the cache key from the presented plaintext so the
	// cached auth context dies with the token
	var cacheKey string
	if token := presentedToken(r); token != "" {
		cacheKey = auth.QuickHash(token)
	}

	if err := h.svc.Logout(r.Context(), service.LogoutInput{
		TokenID:  authCtx.TokenID,
		CacheKey: cacheKey,
	}); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_logged_out",
		"user_id", authCtx.UserID,
		"token_id", authCtx.TokenID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionDeleted, model.AuditObjectToken, authCtx.TokenID, "logout")

	w.WriteHeader(http.StatusNoContent)
}

// ListTokens handles GET /api/v1/users/tokens.
func (h *UserHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	tokens, err := h.svc.ListTokens(r.Context(), authCtx.UserID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	responses := make([]model.AuthTokenResponse, 0, len(tokens))
	for _, token := range tokens {
		responses = append(responses, token.ToResponse())
	}

	writeJSON(w, http.StatusOK, dto.TokenListResponse{Tokens: responses})
}

// RevokeToken handles DELETE /api/v1/users/tokens/{id}.
func (h *UserHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	tokenID := chi.URLParam(r, "id")
	if tokenID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Token ID is required")
		return
	}

	if err := h.svc.RevokeToken(r.Context(), service.RevokeTokenInput{
		UserID:  authCtx.UserID,
		TokenID: tokenID,
	}); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("token_revoked",
		"user_id", authCtx.UserID,
		"token_id", tokenID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionDeleted, model.AuditObjectToken, tokenID, "token revoked")

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *UserHandler) handleServiceError(w http.ResponseWriter, err error) {
	if vErr, ok := asValidationError(err); ok {
		writeValidationError(w, vErr)
		return
	}

	switch {
	case errors.Is(err, service.ErrEmailExists):
		writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email address already registered")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token not found or already revoked")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// presentedToken returns the bearer credential from the Authorization
// header, or "" if absent.
func presentedToken(r *http.Request) string {
	scheme, value, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found {
		return ""
	}
	switch scheme {
	case "Token", "Bearer":
		return strings.TrimSpace(value)
	}
	return ""
}
