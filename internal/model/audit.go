// Package model defines domain entities for the application.
package model

import "time"

// Audit action constants.
const (
	AuditActionCreated = "created"
	AuditActionUpdated = "updated"
	AuditActionDeleted = "deleted"
)

// Audit object type constants.
const (
	AuditObjectUser       = "user"
	AuditObjectToken      = "token"
	AuditObjectTag        = "tag"
	AuditObjectIngredient = "ingredient"
	AuditObjectRecipe     = "recipe"
	AuditObjectWebhook    = "webhook"
)

// AuditEvent records a single mutation performed through the API.
// Events flow through a Redis stream before landing in Postgres, so a
// burst of writes never blocks the request path.
type AuditEvent struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	// Who did what to what
	ActorID    string `json:"actor_id"`
	Action     string `json:"action"`
	ObjectType string `json:"object_type"`
	ObjectID   string `json:"object_id"`
	Summary    string `json:"summary,omitempty"` // Human-readable, truncated 500 chars

	// Request correlation
	RequestID string `json:"request_id,omitempty"`

	// Timestamps
	OccurredAt time.Time `json:"occurred_at"` // Event timestamp
	CreatedAt  time.Time `json:"created_at"`  // DB insertion time
}
