package dto

import (
	"time"

	"github.com/forkful/forkful/internal/model"
)

// AuditEventResponse represents one audit trail entry.
type AuditEventResponse struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	ObjectType string    `json:"object_type"`
	ObjectID   string    `json:"object_id"`
	Summary    string    `json:"summary,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditListResponse represents a cursor-paginated page of audit events.
type AuditListResponse struct {
	Data       []AuditEventResponse `json:"data"`
	Pagination *Pagination          `json:"pagination"`
}

// ToAuditEventResponse converts an AuditEvent model to its API shape.
func ToAuditEventResponse(event *model.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:         event.ID,
		ActorID:    event.ActorID,
		Action:     event.Action,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Summary:    event.Summary,
		RequestID:  event.RequestID,
		OccurredAt: event.OccurredAt,
	}
}

// ToAuditListResponse converts a page of audit events to the list
// envelope.
func ToAuditListResponse(events []*model.AuditEvent, nextCursor string) *AuditListResponse {
	responses := make([]AuditEventResponse, len(events))
	for i, event := range events {
		responses[i] = ToAuditEventResponse(event)
	}
	return &AuditListResponse{
		Data: responses,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    nextCursor != "",
		},
	}
}
