package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/forkful/forkful/internal/audit"
	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/handler/dto"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/service"
)

// TagHandler handles HTTP requests for tag operations.
type TagHandler struct {
	svc    *service.TagService
	audit  *audit.Publisher
	logger *slog.Logger
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(svc *service.TagService, publisher *audit.Publisher, logger *slog.Logger) *TagHandler {
	return &TagHandler{
		svc:    svc,
		audit:  publisher,
		logger: logger,
	}
}

// List handles GET /api/v1/tags.
// With assigned_only=1 only tags referenced by at least one of the
// caller's recipes are returned.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	assignedOnly, err := parseAssignedOnly(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "assigned_only must be a boolean value")
		return
	}

	tags, err := h.svc.ListTags(r.Context(), service.ListTagsInput{
		UserID:       authCtx.UserID,
		AssignedOnly: assignedOnly,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTagListResponse(tags))
}

// Create handles POST /api/v1/tags.
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateCatalogItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	tag, err := h.svc.CreateTag(r.Context(), service.CreateTagInput{
		UserID: authCtx.UserID,
		Name:   req.Name,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("tag_created",
		"tag_id", tag.ID,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionCreated, model.AuditObjectTag, tag.ID, tag.Name)

	writeJSON(w, http.StatusCreated, dto.ToTagResponse(tag))
}

// Update handles PATCH /api/v1/tags/{id}.
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Tag ID is required")
		return
	}

	var req dto.UpdateCatalogItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	tag, err := h.svc.UpdateTag(r.Context(), service.UpdateTagInput{
		UserID: authCtx.UserID,
		TagID:  id,
		Name:   req.Name,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("tag_updated",
		"tag_id", tag.ID,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionUpdated, model.AuditObjectTag, tag.ID, tag.Name)

	writeJSON(w, http.StatusOK, dto.ToTagResponse(tag))
}

// Delete handles DELETE /api/v1/tags/{id}.
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Tag ID is required")
		return
	}

	if err := h.svc.DeleteTag(r.Context(), authCtx.UserID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("tag_deleted",
		"tag_id", id,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionDeleted, model.AuditObjectTag, id, "")

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *TagHandler) handleServiceError(w http.ResponseWriter, err error) {
	if vErr, ok := asValidationError(err); ok {
		writeValidationError(w, vErr)
		return
	}

	switch {
	case errors.Is(err, service.ErrTagNotFound):
		writeError(w, http.StatusNotFound, "TAG_NOT_FOUND", "Tag not found")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// parseAssignedOnly reads the assigned_only query parameter.
// Absent means false; "1"/"true"/"0"/"false" and friends parse with
// strconv.ParseBool semantics; anything else is an error.
func parseAssignedOnly(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("assigned_only")
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
