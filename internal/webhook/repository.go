package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forkful/forkful/internal/model"
)

// Common errors for webhook repository operations.
var (
	ErrEndpointNotFound = errors.New("webhook endpoint not found")
	ErrDeliveryNotFound = errors.New("webhook delivery not found")
)

// Repository handles webhook database operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new webhook repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateEndpoint inserts a new webhook endpoint.
func (r *Repository) CreateEndpoint(ctx context.Context, endpoint *model.WebhookEndpoint) error {
	query := `
		INSERT INTO webhook_endpoints (
			id, user_id, target_url, secret_hash, enabled,
			event_types, name, description, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		endpoint.ID,
		endpoint.UserID,
		endpoint.TargetURL,
		endpoint.SecretHash,
		endpoint.Enabled,
		eventTypeStrings(endpoint.EventTypes),
		endpoint.Name,
		endpoint.Description,
		endpoint.CreatedAt,
		endpoint.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook endpoint: %w", err)
	}

	return nil
}

// GetEndpoint retrieves a webhook endpoint by ID, scoped to the owning
// user. Another user's endpoint is indistinguishable from a missing one.
func (r *Repository) GetEndpoint(ctx context.Context, userID, id string) (*model.WebhookEndpoint, error) {
	query := endpointSelect + ` WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	endpoint, err := scanEndpoint(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEndpointNotFound
		}
		return nil, fmt.Errorf("failed to get webhook endpoint: %w", err)
	}

	return endpoint, nil
}

// GetEndpointForDelivery retrieves an endpoint by ID alone. The delivery
// worker has no user context; everything else goes through GetEndpoint.
func (r *Repository) GetEndpointForDelivery(ctx context.Context, id string) (*model.WebhookEndpoint, error) {
	query := endpointSelect + ` WHERE id = $1 AND deleted_at IS NULL`

	endpoint, err := scanEndpoint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEndpointNotFound
		}
		return nil, fmt.Errorf("failed to get webhook endpoint: %w", err)
	}

	return endpoint, nil
}

// ListEndpointsByUser retrieves all of a user's webhook endpoints,
// newest first.
func (r *Repository) ListEndpointsByUser(ctx context.Context, userID string) ([]*model.WebhookEndpoint, error) {
	query := endpointSelect + `
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook endpoints: %w", err)
	}
	defer rows.Close()

	return collectEndpoints(rows)
}

// ListActiveEndpointsByUserAndEvent retrieves the user's enabled
// endpoints subscribed to the given event type. Fan-out order is stable
// (oldest endpoint first).
func (r *Repository) ListActiveEndpointsByUserAndEvent(ctx context.Context, userID string, eventType model.EventType) ([]*model.WebhookEndpoint, error) {
	query := endpointSelect + `
		WHERE user_id = $1
		  AND deleted_at IS NULL
		  AND enabled = true
		  AND $2 = ANY(event_types)
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, userID, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("failed to list active webhook endpoints: %w", err)
	}
	defer rows.Close()

	return collectEndpoints(rows)
}

// UpdateEndpoint updates a webhook endpoint, scoped to the owning user.
func (r *Repository) UpdateEndpoint(ctx context.Context, endpoint *model.WebhookEndpoint) error {
	query := `
		UPDATE webhook_endpoints
		SET target_url = $3, enabled = $4, event_types = $5,
			name = $6, description = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query,
		endpoint.ID,
		endpoint.UserID,
		endpoint.TargetURL,
		endpoint.Enabled,
		eventTypeStrings(endpoint.EventTypes),
		endpoint.Name,
		endpoint.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to update webhook endpoint: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrEndpointNotFound
	}

	return nil
}

// UpdateEndpointSecret replaces the stored signing key, scoped to the
// owning user.
func (r *Repository) UpdateEndpointSecret(ctx context.Context, userID, id, secretHash string) error {
	query := `
		UPDATE webhook_endpoints
		SET secret_hash = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, userID, secretHash)
	if err != nil {
		return fmt.Errorf("failed to update webhook endpoint secret: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrEndpointNotFound
	}

	return nil
}

// DeleteEndpoint soft-deletes a webhook endpoint, scoped to the owning
// user. Existing delivery rows stay for the audit trail; the worker
// exhausts them on its next pass.
func (r *Repository) DeleteEndpoint(ctx context.Context, userID, id string) error {
	query := `
		UPDATE webhook_endpoints
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook endpoint: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrEndpointNotFound
	}

	return nil
}

// CreateDelivery inserts a new delivery record. Replayed fan-out for the
// same (event, endpoint) pair is dropped by the unique key.
func (r *Repository) CreateDelivery(ctx context.Context, delivery *model.WebhookDelivery) error {
	query := `
		INSERT INTO webhook_deliveries (
			id, endpoint_id, event_id, event_type, payload_json,
			status, attempt_count, max_attempts, next_retry_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id, endpoint_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		delivery.ID,
		delivery.EndpointID,
		delivery.EventID,
		string(delivery.EventType),
		delivery.PayloadJSON,
		string(delivery.Status),
		delivery.AttemptCount,
		delivery.MaxAttempts,
		delivery.NextRetryAt,
		delivery.CreatedAt,
		delivery.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}

	return nil
}

// GetPendingDeliveries retrieves deliveries that are due, oldest due
// first. Deliveries for disabled or deleted endpoints are left alone
// here and exhausted by the worker.
func (r *Repository) GetPendingDeliveries(ctx context.Context, limit int) ([]*model.WebhookDelivery, error) {
	query := deliverySelect + `
		WHERE status IN ('pending', 'failed')
		  AND next_retry_at <= NOW()
		ORDER BY next_retry_at
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending deliveries: %w", err)
	}
	defer rows.Close()

	return collectDeliveries(rows)
}

// UpdateDeliverySuccess marks a delivery as delivered.
func (r *Repository) UpdateDeliverySuccess(ctx context.Context, id string, httpStatus int) error {
	query := `
		UPDATE webhook_deliveries
		SET status = 'success',
			attempt_count = attempt_count + 1,
			last_attempt_at = NOW(),
			last_http_status = $2,
			last_error = '',
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, httpStatus)
	if err != nil {
		return fmt.Errorf("failed to update delivery success: %w", err)
	}

	return nil
}

// UpdateDeliveryFailure records a failed attempt and schedules the next
// retry, or marks the delivery exhausted.
func (r *Repository) UpdateDeliveryFailure(ctx context.Context, id string, httpStatus *int, errMsg string, nextRetryAt time.Time, exhausted bool) error {
	status := string(model.DeliveryStatusFailed)
	if exhausted {
		status = string(model.DeliveryStatusExhausted)
	}

	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}

	query := `
		UPDATE webhook_deliveries
		SET status = $2,
			attempt_count = attempt_count + 1,
			last_attempt_at = NOW(),
			last_http_status = $3,
			last_error = $4,
			next_retry_at = $5,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, status, httpStatus, errMsg, nextRetryAt)
	if err != nil {
		return fmt.Errorf("failed to update delivery failure: %w", err)
	}

	return nil
}

// GetDeliveryForEndpoint retrieves a delivery scoped to its endpoint.
// Handlers verify endpoint ownership first, so the scope keeps delivery
// ids from other endpoints unreachable.
func (r *Repository) GetDeliveryForEndpoint(ctx context.Context, endpointID, deliveryID string) (*model.WebhookDelivery, error) {
	query := deliverySelect + ` WHERE id = $1 AND endpoint_id = $2`

	delivery, err := scanDelivery(r.pool.QueryRow(ctx, query, deliveryID, endpointID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("failed to get webhook delivery: %w", err)
	}

	return delivery, nil
}

// ListDeliveriesByEndpoint retrieves an endpoint's deliveries in reverse
// creation order, optionally filtered by status, with offset pagination.
func (r *Repository) ListDeliveriesByEndpoint(ctx context.Context, endpointID string, statuses []string, limit, offset int) ([]*model.WebhookDelivery, int, error) {
	where := squirrel.And{squirrel.Eq{"endpoint_id": endpointID}}
	if len(statuses) > 0 {
		where = append(where, squirrel.Eq{"status": statuses})
	}

	countQuery, countArgs, err := squirrel.Select("COUNT(*)").
		From("webhook_deliveries").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build delivery count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count deliveries: %w", err)
	}

	query, args, err := squirrel.Select(deliveryColumns...).
		From("webhook_deliveries").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build delivery list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	deliveries, err := collectDeliveries(rows)
	if err != nil {
		return nil, 0, err
	}

	return deliveries, total, nil
}

// ResetDeliveryForRetry re-queues an exhausted delivery, scoped to its
// endpoint.
func (r *Repository) ResetDeliveryForRetry(ctx context.Context, endpointID, deliveryID string) error {
	query := `
		UPDATE webhook_deliveries
		SET status = 'pending',
			next_retry_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND endpoint_id = $2 AND status = 'exhausted'
	`

	result, err := r.pool.Exec(ctx, query, deliveryID, endpointID)
	if err != nil {
		return fmt.Errorf("failed to reset delivery: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrDeliveryNotFound
	}

	return nil
}

// GetQueueDepth returns the count of pending and failed deliveries.
func (r *Repository) GetQueueDepth(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM webhook_deliveries
		WHERE status IN ('pending', 'failed')
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count queue depth: %w", err)
	}

	return count, nil
}

const endpointSelect = `
	SELECT id, user_id, target_url, secret_hash, enabled, event_types,
		   name, description, created_at, updated_at, deleted_at
	FROM webhook_endpoints`

var deliveryColumns = []string{
	"id", "endpoint_id", "event_id", "event_type", "payload_json",
	"status", "attempt_count", "max_attempts", "next_retry_at",
	"last_attempt_at", "last_http_status", "last_error",
	"created_at", "updated_at",
}

const deliverySelect = `
	SELECT id, endpoint_id, event_id, event_type, payload_json,
		   status, attempt_count, max_attempts, next_retry_at,
		   last_attempt_at, last_http_status, last_error,
		   created_at, updated_at
	FROM webhook_deliveries`

// scanEndpoint scans a single row into a WebhookEndpoint model.
func scanEndpoint(row pgx.Row) (*model.WebhookEndpoint, error) {
	var endpoint model.WebhookEndpoint
	var eventTypes []string

	err := row.Scan(
		&endpoint.ID,
		&endpoint.UserID,
		&endpoint.TargetURL,
		&endpoint.SecretHash,
		&endpoint.Enabled,
		&eventTypes,
		&endpoint.Name,
		&endpoint.Description,
		&endpoint.CreatedAt,
		&endpoint.UpdatedAt,
		&endpoint.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	endpoint.EventTypes = toEventTypes(eventTypes)
	return &endpoint, nil
}

// collectEndpoints scans all rows into WebhookEndpoint models.
func collectEndpoints(rows pgx.Rows) ([]*model.WebhookEndpoint, error) {
	var endpoints []*model.WebhookEndpoint
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook endpoint: %w", err)
		}
		endpoints = append(endpoints, endpoint)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook endpoints: %w", err)
	}

	return endpoints, nil
}

// scanDelivery scans a single row into a WebhookDelivery model.
func scanDelivery(row pgx.Row) (*model.WebhookDelivery, error) {
	var d model.WebhookDelivery
	var eventType, status string

	err := row.Scan(
		&d.ID,
		&d.EndpointID,
		&d.EventID,
		&eventType,
		&d.PayloadJSON,
		&status,
		&d.AttemptCount,
		&d.MaxAttempts,
		&d.NextRetryAt,
		&d.LastAttemptAt,
		&d.LastHTTPStatus,
		&d.LastError,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.EventType = model.EventType(eventType)
	d.Status = model.DeliveryStatus(status)
	return &d, nil
}

// collectDeliveries scans all rows into WebhookDelivery models.
func collectDeliveries(rows pgx.Rows) ([]*model.WebhookDelivery, error) {
	var deliveries []*model.WebhookDelivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook delivery: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook deliveries: %w", err)
	}

	return deliveries, nil
}

func eventTypeStrings(eventTypes []model.EventType) []string {
	out := make([]string, len(eventTypes))
	for i, et := range eventTypes {
		out[i] = string(et)
	}
	return out
}

func toEventTypes(values []string) []model.EventType {
	out := make([]model.EventType, len(values))
	for i, v := range values {
		out[i] = model.EventType(v)
	}
	return out
}
