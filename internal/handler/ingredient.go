package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forkful/forkful/internal/audit"
	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/handler/dto"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/service"
)

// IngredientHandler handles HTTP requests for ingredient operations.
type IngredientHandler struct {
	svc    *service.IngredientService
	audit  *audit.Publisher
	logger *slog.Logger
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(svc *service.IngredientService, publisher *audit.Publisher, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{
		svc:    svc,
		audit:  publisher,
		logger: logger,
	}
}

// List handles GET /api/v1/ingredients.
// With assigned_only=1 only ingredients referenced by at least one of
// the caller's recipes are returned.
func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
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

	ingredients, err := h.svc.ListIngredients(r.Context(), service.ListIngredientsInput{
		UserID:       authCtx.UserID,
		AssignedOnly: assignedOnly,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToIngredientListResponse(ingredients))
}

// Create handles POST /api/v1/ingredients.
func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	ingredient, err := h.svc.CreateIngredient(r.Context(), service.CreateIngredientInput{
		UserID: authCtx.UserID,
		Name:   req.Name,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("ingredient_created",
		"ingredient_id", ingredient.ID,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionCreated, model.AuditObjectIngredient, ingredient.ID, ingredient.Name)

	writeJSON(w, http.StatusCreated, dto.ToIngredientResponse(ingredient))
}

// Update handles PATCH /api/v1/ingredients/{id}.
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Ingredient ID is required")
		return
	}

	var req dto.UpdateCatalogItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	ingredient, err := h.svc.UpdateIngredient(r.Context(), service.UpdateIngredientInput{
		UserID:       authCtx.UserID,
		IngredientID: id,
		Name:         req.Name,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("ingredient_updated",
		"ingredient_id", ingredient.ID,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionUpdated, model.AuditObjectIngredient, ingredient.ID, ingredient.Name)

	writeJSON(w, http.StatusOK, dto.ToIngredientResponse(ingredient))
}

// Delete handles DELETE /api/v1/ingredients/{id}.
func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Ingredient ID is required")
		return
	}

	if err := h.svc.DeleteIngredient(r.Context(), authCtx.UserID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("ingredient_deleted",
		"ingredient_id", id,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionDeleted, model.AuditObjectIngredient, id, "")

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *IngredientHandler) handleServiceError(w http.ResponseWriter, err error) {
	if vErr, ok := asValidationError(err); ok {
		writeValidationError(w, vErr)
		return
	}

	switch {
	case errors.Is(err, service.ErrIngredientNotFound):
		writeError(w, http.StatusNotFound, "INGREDIENT_NOT_FOUND", "Ingredient not found")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
