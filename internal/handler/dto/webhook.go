package dto

import (
	"time"

	"github.com/forkful/forkful/internal/model"
)

// CreateWebhookRequest represents the request body for registering a
// webhook endpoint. Enabled defaults to true when absent.
type CreateWebhookRequest struct {
	TargetURL   string   `json:"target_url"`
	EventTypes  []string `json:"event_types"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Enabled     *bool    `json:"enabled,omitempty"`
}

// UpdateWebhookRequest represents a partial webhook endpoint update.
// Absent fields are left untouched; event_types replaces the whole set.
type UpdateWebhookRequest struct {
	TargetURL   *string   `json:"target_url,omitempty"`
	EventTypes  *[]string `json:"event_types,omitempty"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Enabled     *bool     `json:"enabled,omitempty"`
}

// WebhookResponse represents a webhook endpoint. The signing secret is
// never included; it is returned once at creation and on rotation.
type WebhookResponse struct {
	ID          string    `json:"id"`
	TargetURL   string    `json:"target_url"`
	Enabled     bool      `json:"enabled"`
	EventTypes  []string  `json:"event_types"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WebhookCreateResponse is the creation response: the endpoint plus the
// plaintext secret, shown this one time.
type WebhookCreateResponse struct {
	WebhookResponse
	Secret string `json:"secret"`
}

// RotateSecretResponse carries the replacement secret after rotation.
type RotateSecretResponse struct {
	Secret string `json:"secret"`
}

// WebhookDeliveryResponse represents one delivery attempt record.
// NextRetryAt is present only while another attempt is still scheduled.
type WebhookDeliveryResponse struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	EventType      string     `json:"event_type"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attempt_count"`
	MaxAttempts    int        `json:"max_attempts"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	LastHTTPStatus *int       `json:"last_http_status,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OffsetPagination describes a page/per_page slice of a known total.
type OffsetPagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// WebhookDeliveryListResponse represents a page of delivery records.
type WebhookDeliveryListResponse struct {
	Data       []WebhookDeliveryResponse `json:"data"`
	Pagination *OffsetPagination         `json:"pagination"`
}

// ToWebhookResponse converts a WebhookEndpoint model to its API shape.
func ToWebhookResponse(endpoint *model.WebhookEndpoint) WebhookResponse {
	eventTypes := make([]string, len(endpoint.EventTypes))
	for i, et := range endpoint.EventTypes {
		eventTypes[i] = string(et)
	}
	return WebhookResponse{
		ID:          endpoint.ID,
		TargetURL:   endpoint.TargetURL,
		Enabled:     endpoint.Enabled,
		EventTypes:  eventTypes,
		Name:        endpoint.Name,
		Description: endpoint.Description,
		CreatedAt:   endpoint.CreatedAt,
		UpdatedAt:   endpoint.UpdatedAt,
	}
}

// ToWebhookListResponse converts endpoints to the list shape (bare
// array, newest first as loaded).
func ToWebhookListResponse(endpoints []*model.WebhookEndpoint) []WebhookResponse {
	responses := make([]WebhookResponse, len(endpoints))
	for i, endpoint := range endpoints {
		responses[i] = ToWebhookResponse(endpoint)
	}
	return responses
}

// ToWebhookDeliveryResponse converts a WebhookDelivery model to its API
// shape.
func ToWebhookDeliveryResponse(delivery *model.WebhookDelivery) WebhookDeliveryResponse {
	resp := WebhookDeliveryResponse{
		ID:             delivery.ID,
		EventID:        delivery.EventID,
		EventType:      string(delivery.EventType),
		Status:         string(delivery.Status),
		AttemptCount:   delivery.AttemptCount,
		MaxAttempts:    delivery.MaxAttempts,
		LastAttemptAt:  delivery.LastAttemptAt,
		LastHTTPStatus: delivery.LastHTTPStatus,
		LastError:      delivery.LastError,
		CreatedAt:      delivery.CreatedAt,
		UpdatedAt:      delivery.UpdatedAt,
	}
	if !delivery.IsTerminal() {
		next := delivery.NextRetryAt
		resp.NextRetryAt = &next
	}
	return resp
}

// ToWebhookDeliveryListResponse converts a page of deliveries to the
// list envelope.
func ToWebhookDeliveryListResponse(deliveries []*model.WebhookDelivery, page, perPage, total int) *WebhookDeliveryListResponse {
	responses := make([]WebhookDeliveryResponse, len(deliveries))
	for i, delivery := range deliveries {
		responses[i] = ToWebhookDeliveryResponse(delivery)
	}
	return &WebhookDeliveryListResponse{
		Data: responses,
		Pagination: &OffsetPagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
		},
	}
}
