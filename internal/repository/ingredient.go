package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/forkful/forkful/internal/model"
)

// Common errors for ingredient repository operations.
var (
	ErrIngredientNotFound = errors.New("ingredient not found")
)

// CreateIngredient inserts a new ingredient into the database.
func (r *Repository) CreateIngredient(ctx context.Context, ing *model.Ingredient) error {
	query := `
		INSERT INTO ingredients (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		ing.ID,
		ing.UserID,
		ing.Name,
		ing.CreatedAt,
		ing.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create ingredient: %w", err)
	}

	return nil
}

// GetIngredientByID retrieves an ingredient by its ID, scoped to the
// owning user.
func (r *Repository) GetIngredientByID(ctx context.Context, userID, id string) (*model.Ingredient, error) {
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM ingredients
		WHERE id = $1 AND user_id = $2
	`

	ing, err := scanIngredient(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient by ID: %w", err)
	}

	return ing, nil
}

// ListIngredients retrieves a user's ingredients ordered by name
// descending, ties broken by id ascending. Assigned-only semantics
// match ListTags: the recipe join is owner-constrained and DISTINCT
// keeps multiply-referenced ingredients to one row.
func (r *Repository) ListIngredients(ctx context.Context, userID string, filter CatalogFilter) ([]*model.Ingredient, error) {
	builder := squirrel.Select("i.id", "i.user_id", "i.name", "i.created_at", "i.updated_at").
		From("ingredients i").
		Where(squirrel.Eq{"i.user_id": userID}).
		OrderBy("i.name DESC", "i.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.AssignedOnly {
		builder = builder.Distinct().
			Join("recipe_ingredients ri ON ri.ingredient_id = i.id").
			Join("recipes r ON r.id = ri.recipe_id AND r.user_id = i.user_id")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build ingredient list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []*model.Ingredient
	for rows.Next() {
		ing, err := scanIngredientFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredients: %w", err)
	}

	return ingredients, nil
}

// UpdateIngredient updates an ingredient's name, scoped to the owning user.
func (r *Repository) UpdateIngredient(ctx context.Context, ing *model.Ingredient) error {
	query := `
		UPDATE ingredients
		SET name = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.pool.Exec(ctx, query, ing.ID, ing.UserID, ing.Name)
	if err != nil {
		return fmt.Errorf("failed to update ingredient: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrIngredientNotFound
	}

	return nil
}

// DeleteIngredient removes an ingredient, scoped to the owning user.
// Join rows in recipe_ingredients are removed by ON DELETE CASCADE.
func (r *Repository) DeleteIngredient(ctx context.Context, userID, id string) error {
	query := `DELETE FROM ingredients WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrIngredientNotFound
	}

	return nil
}

// GetIngredientsByIDs retrieves the subset of the given ingredient ids
// owned by the user. Used to validate recipe ingredient assignments.
func (r *Repository) GetIngredientsByIDs(ctx context.Context, userID string, ids []string) ([]*model.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM ingredients
		WHERE user_id = $1 AND id = ANY($2)
	`

	rows, err := r.pool.Query(ctx, query, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredients by ids: %w", err)
	}
	defer rows.Close()

	var ingredients []*model.Ingredient
	for rows.Next() {
		ing, err := scanIngredientFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingredients: %w", err)
	}

	return ingredients, nil
}

// scanIngredient scans a single row into an Ingredient model.
func scanIngredient(row pgx.Row) (*model.Ingredient, error) {
	var ing model.Ingredient
	err := row.Scan(
		&ing.ID,
		&ing.UserID,
		&ing.Name,
		&ing.CreatedAt,
		&ing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ing, nil
}

// scanIngredientFromRows scans a row from pgx.Rows into an Ingredient model.
func scanIngredientFromRows(rows pgx.Rows) (*model.Ingredient, error) {
	var ing model.Ingredient
	err := rows.Scan(
		&ing.ID,
		&ing.UserID,
		&ing.Name,
		&ing.CreatedAt,
		&ing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ing, nil
}
