// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/forkful/forkful/internal/audit"
	"github.com/forkful/forkful/internal/handler/dto"
	"github.com/forkful/forkful/internal/middleware"
	"github.com/forkful/forkful/internal/service"
)

// Handler serves the unauthenticated utility endpoints.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New(version string) *Handler {
	if version == "" {
		version = "dev"
	}
	return &Handler{version: version}
}

// Root is the service info endpoint.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"service": "forkful",
		"version": h.version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing useful left to do
		_ = err
	}
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeValidationError writes a 400 naming the failing field.
func writeValidationError(w http.ResponseWriter, vErr *service.ValidationError) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error: vErr.Message,
		Code:  "VALIDATION_ERROR",
		Field: vErr.Field,
	})
}

// asValidationError unwraps a service validation error, if any.
func asValidationError(err error) (*service.ValidationError, bool) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

// publishAudit emits an audit event for a completed mutation.
// A nil publisher (tests, audit disabled) is a no-op.
func publishAudit(p *audit.Publisher, r *http.Request, actorID, action, objectType, objectID, summary string) {
	if p == nil {
		return
	}
	p.PublishAsync(audit.EventPayload{
		ActorID:    actorID,
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		Summary:    audit.TruncateSummary(summary),
		RequestID:  middleware.GetRequestID(r.Context()),
		OccurredAt: time.Now().UnixMilli(),
	})
}
