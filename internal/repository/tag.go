package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/forkful/forkful/internal/model"
)

// Common errors for tag repository operations.
var (
	ErrTagNotFound = errors.New("tag not found")
)

// CatalogFilter defines filters for listing tags or ingredients.
type CatalogFilter struct {
	// AssignedOnly restricts the listing to records referenced by at
	// least one of the owner's recipes.
	AssignedOnly bool
}

// CreateTag inserts a new tag into the database.
func (r *Repository) CreateTag(ctx context.Context, tag *model.Tag) error {
	query := `
		INSERT INTO tags (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		tag.ID,
		tag.UserID,
		tag.Name,
		tag.CreatedAt,
		tag.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

// GetTagByID retrieves a tag by its ID, scoped to the owning user.
// Another user's tag is indistinguishable from a missing one.
func (r *Repository) GetTagByID(ctx context.Context, userID, id string) (*model.Tag, error) {
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM tags
		WHERE id = $1 AND user_id = $2
	`

	tag, err := scanTag(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag by ID: %w", err)
	}

	return tag, nil
}

// ListTags retrieves a user's tags ordered by name descending, ties
// broken by id ascending.
//
// With AssignedOnly set, only tags referenced by at least one of the
// same user's recipes are returned. The join is constrained to recipes
// with a matching user_id, so a reference from another user's recipe
// never pulls a tag into the listing. DISTINCT collapses tags assigned
// to several recipes into a single row.
func (r *Repository) ListTags(ctx context.Context, userID string, filter CatalogFilter) ([]*model.Tag, error) {
	builder := squirrel.Select("t.id", "t.user_id", "t.name", "t.created_at", "t.updated_at").
		From("tags t").
		Where(squirrel.Eq{"t.user_id": userID}).
		OrderBy("t.name DESC", "t.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.AssignedOnly {
		builder = builder.Distinct().
			Join("recipe_tags rt ON rt.tag_id = t.id").
			Join("recipes r ON r.id = rt.recipe_id AND r.user_id = t.user_id")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tag list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*model.Tag
	for rows.Next() {
		tag, err := scanTagFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// UpdateTag updates a tag's name, scoped to the owning user.
func (r *Repository) UpdateTag(ctx context.Context, tag *model.Tag) error {
	query := `
		UPDATE tags
		SET name = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.pool.Exec(ctx, query, tag.ID, tag.UserID, tag.Name)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTagNotFound
	}

	return nil
}

// DeleteTag removes a tag, scoped to the owning user.
// Join rows in recipe_tags are removed by ON DELETE CASCADE.
func (r *Repository) DeleteTag(ctx context.Context, userID, id string) error {
	query := `DELETE FROM tags WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTagNotFound
	}

	return nil
}

// GetTagsByIDs retrieves the subset of the given tag ids owned by the
// user. Used to validate recipe tag assignments.
func (r *Repository) GetTagsByIDs(ctx context.Context, userID string, ids []string) ([]*model.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM tags
		WHERE user_id = $1 AND id = ANY($2)
	`

	rows, err := r.pool.Query(ctx, query, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags by ids: %w", err)
	}
	defer rows.Close()

	var tags []*model.Tag
	for rows.Next() {
		tag, err := scanTagFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// scanTag scans a single row into a Tag model.
func scanTag(row pgx.Row) (*model.Tag, error) {
	var tag model.Tag
	err := row.Scan(
		&tag.ID,
		&tag.UserID,
		&tag.Name,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// scanTagFromRows scans a row from pgx.Rows into a Tag model.
func scanTagFromRows(rows pgx.Rows) (*model.Tag, error) {
	var tag model.Tag
	err := rows.Scan(
		&tag.ID,
		&tag.UserID,
		&tag.Name,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tag, nil
}
