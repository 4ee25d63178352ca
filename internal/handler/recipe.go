package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/forkful/forkful/internal/audit"
	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/handler/dto"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/service"
	"github.com/forkful/forkful/internal/webhook"
)

// RecipeHandler handles HTTP requests for recipe operations.
type RecipeHandler struct {
	svc      *service.RecipeService
	audit    *audit.Publisher
	webhooks *webhook.Publisher
	logger   *slog.Logger
}

// NewRecipeHandler creates a new RecipeHandler. The webhook publisher
// may be nil (tests, webhooks disabled); recipe events are then not
// fanned out.
func NewRecipeHandler(svc *service.RecipeService, publisher *audit.Publisher, webhooks *webhook.Publisher, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		svc:      svc,
		audit:    publisher,
		webhooks: webhooks,
		logger:   logger,
	}
}

// List handles GET /api/v1/recipes.
// tags and ingredients take comma-separated id lists; within a facet
// the ids combine per match (any|all, default any), across facets they
// intersect. Results are newest first.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	query := r.URL.Query()

	recipes, err := h.svc.ListRecipes(r.Context(), service.ListRecipesInput{
		UserID:        authCtx.UserID,
		TagIDs:        splitIDList(query.Get("tags")),
		IngredientIDs: splitIDList(query.Get("ingredients")),
		Match:         query.Get("match"),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecipeListResponse(recipes))
}

// Create handles POST /api/v1/recipes.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	recipe, err := h.svc.CreateRecipe(r.Context(), service.CreateRecipeInput{
		UserID:        authCtx.UserID,
		Title:         req.Title,
		TimeMinutes:   req.TimeMinutes,
		Price:         req.Price,
		Link:          req.Link,
		TagIDs:        req.TagIDs,
		IngredientIDs: req.IngredientIDs,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recipe_created",
		"recipe_id", recipe.ID,
		"user_id", authCtx.UserID,
		"tag_count", len(recipe.Tags),
		"ingredient_count", len(recipe.Ingredients),
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionCreated, model.AuditObjectRecipe, recipe.ID, recipe.Title)
	if h.webhooks != nil {
		h.webhooks.PublishRecipeEventAsync(model.EventTypeRecipeCreated, recipe)
	}

	writeJSON(w, http.StatusCreated, dto.ToRecipeResponse(recipe))
}

// Get handles GET /api/v1/recipes/{id}.
// The detail response embeds full tag and ingredient records.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Recipe ID is required")
		return
	}

	recipe, err := h.svc.GetRecipe(r.Context(), authCtx.UserID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecipeResponse(recipe))
}

// Update handles PATCH /api/v1/recipes/{id}.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Recipe ID is required")
		return
	}

	var req dto.UpdateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	recipe, err := h.svc.UpdateRecipe(r.Context(), service.UpdateRecipeInput{
		UserID:        authCtx.UserID,
		RecipeID:      id,
		Title:         req.Title,
		TimeMinutes:   req.TimeMinutes,
		Price:         req.Price,
		Link:          req.Link,
		TagIDs:        req.TagIDs,
		IngredientIDs: req.IngredientIDs,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recipe_updated",
		"recipe_id", recipe.ID,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionUpdated, model.AuditObjectRecipe, recipe.ID, recipe.Title)
	if h.webhooks != nil {
		h.webhooks.PublishRecipeEventAsync(model.EventTypeRecipeUpdated, recipe)
	}

	writeJSON(w, http.StatusOK, dto.ToRecipeResponse(recipe))
}

// Delete handles DELETE /api/v1/recipes/{id}.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Recipe ID is required")
		return
	}

	if err := h.svc.DeleteRecipe(r.Context(), authCtx.UserID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recipe_deleted",
		"recipe_id", id,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionDeleted, model.AuditObjectRecipe, id, "")
	if h.webhooks != nil {
		h.webhooks.PublishRecipeDeletedAsync(authCtx.UserID, id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *RecipeHandler) handleServiceError(w http.ResponseWriter, err error) {
	if vErr, ok := asValidationError(err); ok {
		writeValidationError(w, vErr)
		return
	}

	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		writeError(w, http.StatusNotFound, "RECIPE_NOT_FOUND", "Recipe not found")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// splitIDList splits a comma-separated id parameter. Blank segments
// are dropped, so "a,,b" and " a , b " both give ["a","b"].
func splitIDList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
