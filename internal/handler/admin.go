package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forkful/forkful/internal/audit"
	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/handler/dto"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/repository"
	"github.com/forkful/forkful/internal/service"
)

// AuditLister defines the interface for reading the audit trail.
type AuditLister interface {
	ListAuditEvents(ctx context.Context, filter repository.AuditFilter, cursor string, limit int) ([]*model.AuditEvent, string, error)
}

// AdminHandler provides the staff-only account and audit endpoints.
type AdminHandler struct {
	users     *service.UserService
	auditLog  AuditLister
	publisher *audit.Publisher
	logger    *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users *service.UserService, auditLog AuditLister, publisher *audit.Publisher, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		users:     users,
		auditLog:  auditLog,
		publisher: publisher,
		logger:    logger,
	}
}

// ListUsers handles GET /api/v1/admin/users.
// Supports q (email prefix search), active_only, cursor and limit.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	activeOnly := false
	if raw := query.Get("active_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAM", "active_only must be a boolean value")
			return
		}
		activeOnly = parsed
	}

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	out, err := h.users.AdminListUsers(r.Context(), service.AdminListUsersInput{
		Query:      query.Get("q"),
		ActiveOnly: activeOnly,
		Cursor:     query.Get("cursor"),
		Limit:      limit,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserListResponse(out.Users, out.NextCursor, out.HasMore))
}

// GetUser handles GET /api/v1/admin/users/{id}.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "User ID is required")
		return
	}

	user, err := h.users.AdminGetUser(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAdminUserResponse(user))
}

// CreateUser handles POST /api/v1/admin/users.
// Granting is_staff or is_superuser requires a superuser caller.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.AdminCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.users.AdminCreateUser(r.Context(), service.AdminCreateUserInput{
		Email:            req.Email,
		Password:         req.Password,
		Name:             req.Name,
		IsStaff:          req.IsStaff,
		IsSuperuser:      req.IsSuperuser,
		ActorIsSuperuser: authCtx.IsSuperuser,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("admin_user_created",
		"user_id", user.ID,
		"actor_id", authCtx.UserID,
		"is_staff", user.IsStaff,
		"is_superuser", user.IsSuperuser,
	)

	publishAudit(h.publisher, r, authCtx.UserID, model.AuditActionCreated, model.AuditObjectUser, user.ID, "admin created "+user.Email)

	writeJSON(w, http.StatusCreated, dto.ToAdminUserResponse(user))
}

// UpdateUser handles PATCH /api/v1/admin/users/{id}.
// Changing is_staff or is_superuser requires a superuser caller;
// deactivating an account revokes its tokens.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "User ID is required")
		return
	}

	var req dto.AdminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.users.AdminUpdateUser(r.Context(), service.AdminUpdateUserInput{
		ID:               id,
		Name:             req.Name,
		IsActive:         req.IsActive,
		IsStaff:          req.IsStaff,
		IsSuperuser:      req.IsSuperuser,
		ActorIsSuperuser: authCtx.IsSuperuser,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("admin_user_updated",
		"user_id", user.ID,
		"actor_id", authCtx.UserID,
	)

	publishAudit(h.publisher, r, authCtx.UserID, model.AuditActionUpdated, model.AuditObjectUser, user.ID, "admin updated "+user.Email)

	writeJSON(w, http.StatusOK, dto.ToAdminUserResponse(user))
}

// ListAuditEvents handles GET /api/v1/admin/audit.
// Supports actor_id, action, object_type, cursor and limit; newest
// events first.
func (h *AdminHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 50
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	events, nextCursor, err := h.auditLog.ListAuditEvents(ctx, repository.AuditFilter{
		ActorID:    query.Get("actor_id"),
		Action:     query.Get("action"),
		ObjectType: query.Get("object_type"),
	}, query.Get("cursor"), limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
			return
		}
		h.logger.Error("failed to list audit events", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAuditListResponse(events, nextCursor))
}

// handleServiceError maps service errors to HTTP responses.
func (h *AdminHandler) handleServiceError(w http.ResponseWriter, err error) {
	if vErr, ok := asValidationError(err); ok {
		writeValidationError(w, vErr)
		return
	}

	switch {
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrEmailExists):
		writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email address already registered")
	case errors.Is(err, service.ErrSuperuserRequired):
		writeError(w, http.StatusForbidden, "SUPERUSER_REQUIRED", "Changing account flags requires a superuser")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
