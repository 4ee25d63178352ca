package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/forkful/forkful/internal/model"
)

// AuditEventRepository provides database access for audit events.
type AuditEventRepository struct {
	repo *Repository
}

// NewAuditEventRepository creates a new AuditEventRepository.
func NewAuditEventRepository(repo *Repository) *AuditEventRepository {
	return &AuditEventRepository{repo: repo}
}

// AuditFilter defines filters for listing audit events.
type AuditFilter struct {
	ActorID    string
	Action     string
	ObjectType string
}

// BulkInsert inserts multiple audit events with idempotency via ON CONFLICT DO NOTHING.
// Replayed stream entries land on the same event_id and are dropped.
func (r *AuditEventRepository) BulkInsert(ctx context.Context, events []*model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO audit_events (
			id, event_id, actor_id, action, object_type, object_id,
			summary, request_id, occurred_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.ID,
			event.EventID,
			event.ActorID,
			event.Action,
			event.ObjectType,
			event.ObjectID,
			nullableString(event.Summary),
			nullableString(event.RequestID),
			event.OccurredAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	// Check for errors in batch execution
	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// ListAuditEvents retrieves a paginated list of audit events for the
// admin API, newest first.
func (r *AuditEventRepository) ListAuditEvents(ctx context.Context, filter AuditFilter, cursor string, limit int) ([]*model.AuditEvent, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	builder := squirrel.Select(
		"id", "event_id", "actor_id", "action", "object_type", "object_id",
		"COALESCE(summary, '')", "COALESCE(request_id, '')",
		"occurred_at", "created_at",
	).
		From("audit_events").
		OrderBy("id DESC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.ActorID != "" {
		builder = builder.Where(squirrel.Eq{"actor_id": filter.ActorID})
	}
	if filter.Action != "" {
		builder = builder.Where(squirrel.Eq{"action": filter.Action})
	}
	if filter.ObjectType != "" {
		builder = builder.Where(squirrel.Eq{"object_type": filter.ObjectType})
	}
	if cursorData != nil {
		builder = builder.Where(squirrel.Lt{"id": cursorData.ID})
	}

	// Fetch one extra to determine hasMore
	builder = builder.Limit(uint64(limit + 1))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build audit list query: %w", err)
	}

	rows, err := r.repo.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*model.AuditEvent
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating audit events: %w", err)
	}

	var nextCursor string
	if len(events) > limit {
		events = events[:limit]
		nextCursor = encodeCursor(&PaginationCursor{ID: events[len(events)-1].ID})
	}

	return events, nextCursor, nil
}

// CountAuditEvents returns the number of stored events matching the filter.
func (r *AuditEventRepository) CountAuditEvents(ctx context.Context, filter AuditFilter) (int64, error) {
	builder := squirrel.Select("COUNT(*)").
		From("audit_events").
		PlaceholderFormat(squirrel.Dollar)

	if filter.ActorID != "" {
		builder = builder.Where(squirrel.Eq{"actor_id": filter.ActorID})
	}
	if filter.Action != "" {
		builder = builder.Where(squirrel.Eq{"action": filter.Action})
	}
	if filter.ObjectType != "" {
		builder = builder.Where(squirrel.Eq{"object_type": filter.ObjectType})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build audit count query: %w", err)
	}

	var count int64
	if err := r.repo.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	return count, nil
}

// scanAuditEvent scans a row into an AuditEvent.
func scanAuditEvent(rows pgx.Rows) (*model.AuditEvent, error) {
	var event model.AuditEvent
	err := rows.Scan(
		&event.ID,
		&event.EventID,
		&event.ActorID,
		&event.Action,
		&event.ObjectType,
		&event.ObjectID,
		&event.Summary,
		&event.RequestID,
		&event.OccurredAt,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
