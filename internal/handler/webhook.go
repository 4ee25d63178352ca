package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/forkful/forkful/internal/audit"
	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/handler/dto"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/webhook"
)

const (
	maxWebhookNameLength        = 100
	maxWebhookDescriptionLength = 500

	defaultDeliveryPageSize = 20
	maxDeliveryPageSize     = 100
)

// WebhookHandler handles HTTP requests for webhook endpoint management.
type WebhookHandler struct {
	repo          *webhook.Repository
	audit         *audit.Publisher
	logger        *slog.Logger
	allowInsecure bool
}

// NewWebhookHandler creates a new WebhookHandler. allowInsecure permits
// plain-HTTP targets and private addresses for local development.
func NewWebhookHandler(repo *webhook.Repository, publisher *audit.Publisher, logger *slog.Logger, allowInsecure bool) *WebhookHandler {
	return &WebhookHandler{
		repo:          repo,
		audit:         publisher,
		logger:        logger,
		allowInsecure: allowInsecure,
	}
}

// List handles GET /api/v1/webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	endpoints, err := h.repo.ListEndpointsByUser(r.Context(), authCtx.UserID)
	if err != nil {
		h.handleRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWebhookListResponse(endpoints))
}

// Create handles POST /api/v1/webhooks.
// The response includes the signing secret; it is not retrievable
// afterwards, only replaceable via rotate-secret.
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if !h.validateTarget(w, req.TargetURL) {
		return
	}
	eventTypes, ok := h.validateEventTypes(w, req.EventTypes)
	if !ok {
		return
	}
	if !h.validateLabels(w, req.Name, req.Description) {
		return
	}

	secret, err := webhook.GenerateSecret()
	if err != nil {
		h.logger.Error("failed to generate webhook secret", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now().UTC()
	endpoint := &model.WebhookEndpoint{
		ID:          ulid.Make().String(),
		UserID:      authCtx.UserID,
		TargetURL:   req.TargetURL,
		SecretHash:  webhook.HashSecret(secret),
		Enabled:     enabled,
		EventTypes:  eventTypes,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.CreateEndpoint(r.Context(), endpoint); err != nil {
		h.handleRepoError(w, err)
		return
	}

	h.logger.Info("webhook_created",
		"endpoint_id", endpoint.ID,
		"user_id", authCtx.UserID,
		"target_host", webhook.ExtractHost(endpoint.TargetURL),
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionCreated, model.AuditObjectWebhook, endpoint.ID, webhook.ExtractHost(endpoint.TargetURL))

	writeJSON(w, http.StatusCreated, dto.WebhookCreateResponse{
		WebhookResponse: dto.ToWebhookResponse(endpoint),
		Secret:          secret,
	})
}

// Get handles GET /api/v1/webhooks/{id}.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Webhook ID is required")
		return
	}

	endpoint, err := h.repo.GetEndpoint(r.Context(), authCtx.UserID, id)
	if err != nil {
		h.handleRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWebhookResponse(endpoint))
}

// Update handles PATCH /api/v1/webhooks/{id}.
func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Webhook ID is required")
		return
	}

	var req dto.UpdateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	endpoint, err := h.repo.GetEndpoint(r.Context(), authCtx.UserID, id)
	if err != nil {
		h.handleRepoError(w, err)
		return
	}

	if req.TargetURL != nil {
		if !h.validateTarget(w, *req.TargetURL) {
			return
		}
		endpoint.TargetURL = *req.TargetURL
	}
	if req.EventTypes != nil {
		eventTypes, ok := h.validateEventTypes(w, *req.EventTypes)
		if !ok {
			return
		}
		endpoint.EventTypes = eventTypes
	}
	name := endpoint.Name
	if req.Name != nil {
		name = *req.Name
	}
	description := endpoint.Description
	if req.Description != nil {
		description = *req.Description
	}
	if !h.validateLabels(w, name, description) {
		return
	}
	endpoint.Name = name
	endpoint.Description = description
	if req.Enabled != nil {
		endpoint.Enabled = *req.Enabled
	}

	if err := h.repo.UpdateEndpoint(r.Context(), endpoint); err != nil {
		h.handleRepoError(w, err)
		return
	}

	h.logger.Info("webhook_updated",
		"endpoint_id", endpoint.ID,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionUpdated, model.AuditObjectWebhook, endpoint.ID, webhook.ExtractHost(endpoint.TargetURL))

	writeJSON(w, http.StatusOK, dto.ToWebhookResponse(endpoint))
}

// Delete handles DELETE /api/v1/webhooks/{id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Webhook ID is required")
		return
	}

	if err := h.repo.DeleteEndpoint(r.Context(), authCtx.UserID, id); err != nil {
		h.handleRepoError(w, err)
		return
	}

	h.logger.Info("webhook_deleted",
		"endpoint_id", id,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionDeleted, model.AuditObjectWebhook, id, "")

	w.WriteHeader(http.StatusNoContent)
}

// RotateSecret handles POST /api/v1/webhooks/{id}/rotate-secret.
// The old secret stops working immediately; in-flight deliveries are
// signed with whichever key is stored when the attempt goes out.
func (h *WebhookHandler) RotateSecret(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Webhook ID is required")
		return
	}

	secret, err := webhook.GenerateSecret()
	if err != nil {
		h.logger.Error("failed to generate webhook secret", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	if err := h.repo.UpdateEndpointSecret(r.Context(), authCtx.UserID, id, webhook.HashSecret(secret)); err != nil {
		h.handleRepoError(w, err)
		return
	}

	h.logger.Info("webhook_secret_rotated",
		"endpoint_id", id,
		"user_id", authCtx.UserID,
	)

	publishAudit(h.audit, r, authCtx.UserID, model.AuditActionUpdated, model.AuditObjectWebhook, id, "rotated secret")

	writeJSON(w, http.StatusOK, dto.RotateSecretResponse{Secret: secret})
}

// ListDeliveries handles GET /api/v1/webhooks/{id}/deliveries.
// status takes a comma-separated list of delivery states; page and
// per_page control offset pagination, newest deliveries first.
func (h *WebhookHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Webhook ID is required")
		return
	}

	// Ownership check; deliveries are keyed by endpoint.
	endpoint, err := h.repo.GetEndpoint(r.Context(), authCtx.UserID, id)
	if err != nil {
		h.handleRepoError(w, err)
		return
	}

	query := r.URL.Query()

	page := 1
	if p := query.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	perPage := defaultDeliveryPageSize
	if pp := query.Get("per_page"); pp != "" {
		if parsed, err := strconv.Atoi(pp); err == nil && parsed > 0 && parsed <= maxDeliveryPageSize {
			perPage = parsed
		}
	}

	statuses := splitIDList(query.Get("status"))

	deliveries, total, err := h.repo.ListDeliveriesByEndpoint(r.Context(), endpoint.ID, statuses, perPage, (page-1)*perPage)
	if err != nil {
		h.handleRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWebhookDeliveryListResponse(deliveries, page, perPage, total))
}

// RetryDelivery handles POST /api/v1/webhooks/{id}/deliveries/{deliveryID}/retry.
// Only exhausted deliveries can be re-queued; the worker picks them up
// on its next poll.
func (h *WebhookHandler) RetryDelivery(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	deliveryID := chi.URLParam(r, "deliveryID")
	if id == "" || deliveryID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Webhook and delivery IDs are required")
		return
	}

	endpoint, err := h.repo.GetEndpoint(r.Context(), authCtx.UserID, id)
	if err != nil {
		h.handleRepoError(w, err)
		return
	}

	delivery, err := h.repo.GetDeliveryForEndpoint(r.Context(), endpoint.ID, deliveryID)
	if err != nil {
		h.handleRepoError(w, err)
		return
	}

	if delivery.Status != model.DeliveryStatusExhausted {
		writeError(w, http.StatusConflict, "DELIVERY_NOT_RETRYABLE", "Only exhausted deliveries can be retried")
		return
	}

	if err := h.repo.ResetDeliveryForRetry(r.Context(), endpoint.ID, delivery.ID); err != nil {
		h.handleRepoError(w, err)
		return
	}

	h.logger.Info("webhook_delivery_retry",
		"endpoint_id", endpoint.ID,
		"delivery_id", delivery.ID,
		"user_id", authCtx.UserID,
	)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retry_scheduled"})
}

// validateTarget checks the target URL and writes the error response on
// failure.
func (h *WebhookHandler) validateTarget(w http.ResponseWriter, targetURL string) bool {
	if targetURL == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Target URL is required",
			Code:  "VALIDATION_ERROR",
			Field: "target_url",
		})
		return false
	}

	opts := webhook.ValidationOptions{AllowInsecure: h.allowInsecure}
	if err := webhook.ValidateTargetURLWithOptions(targetURL, opts); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid target URL: " + err.Error(),
			Code:  "INVALID_URL",
			Field: "target_url",
		})
		return false
	}

	return true
}

// validateEventTypes checks the subscription list and writes the error
// response on failure.
func (h *WebhookHandler) validateEventTypes(w http.ResponseWriter, raw []string) ([]model.EventType, bool) {
	if len(raw) == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "At least one event type is required",
			Code:  "VALIDATION_ERROR",
			Field: "event_types",
		})
		return nil, false
	}

	eventTypes := make([]model.EventType, 0, len(raw))
	for _, value := range raw {
		et := model.EventType(value)
		if !model.IsValidEventType(et) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error: fmt.Sprintf("Unknown event type %q", value),
				Code:  "INVALID_EVENT_TYPE",
				Field: "event_types",
			})
			return nil, false
		}
		eventTypes = append(eventTypes, et)
	}

	return eventTypes, true
}

// validateLabels checks name and description lengths and writes the
// error response on failure.
func (h *WebhookHandler) validateLabels(w http.ResponseWriter, name, description string) bool {
	if len(name) > maxWebhookNameLength {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: fmt.Sprintf("Name must be at most %d characters", maxWebhookNameLength),
			Code:  "VALIDATION_ERROR",
			Field: "name",
		})
		return false
	}
	if len(description) > maxWebhookDescriptionLength {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: fmt.Sprintf("Description must be at most %d characters", maxWebhookDescriptionLength),
			Code:  "VALIDATION_ERROR",
			Field: "description",
		})
		return false
	}
	return true
}

// handleRepoError maps webhook repository errors to HTTP responses.
func (h *WebhookHandler) handleRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, webhook.ErrEndpointNotFound):
		writeError(w, http.StatusNotFound, "WEBHOOK_NOT_FOUND", "Webhook not found")
	case errors.Is(err, webhook.ErrDeliveryNotFound):
		writeError(w, http.StatusNotFound, "DELIVERY_NOT_FOUND", "Delivery not found")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
