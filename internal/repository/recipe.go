package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/forkful/forkful/internal/model"
)

// Common errors for recipe repository operations.
var (
	ErrRecipeNotFound = errors.New("recipe not found")
)

// RecipeFilter defines filters for listing recipes.
//
// Ids inside one facet combine according to Match; the two facets
// always combine with AND, so a recipe must satisfy both the tag and
// the ingredient condition when both are present.
type RecipeFilter struct {
	UserID        string
	TagIDs        []string
	IngredientIDs []string
	Match         model.MatchMode
}

// CreateRecipe inserts a new recipe and its tag/ingredient assignments
// in a single transaction.
func (r *Repository) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO recipes (id, user_id, title, time_minutes, price, link, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.Exec(ctx, query,
		recipe.ID,
		recipe.UserID,
		recipe.Title,
		recipe.TimeMinutes,
		recipe.Price,
		recipe.Link,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}

	if err := insertJoinRows(ctx, tx, "recipe_tags", "tag_id", recipe.ID, recipe.TagIDs()); err != nil {
		return err
	}
	if err := insertJoinRows(ctx, tx, "recipe_ingredients", "ingredient_id", recipe.ID, recipe.IngredientIDs()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit recipe: %w", err)
	}

	return nil
}

// GetRecipeByID retrieves a recipe with its tag and ingredient sets,
// scoped to the owning user.
func (r *Repository) GetRecipeByID(ctx context.Context, userID, id string) (*model.Recipe, error) {
	query := `
		SELECT id, user_id, title, time_minutes, price, link, created_at, updated_at
		FROM recipes
		WHERE id = $1 AND user_id = $2
	`

	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	if err := r.loadRecipeSets(ctx, []*model.Recipe{recipe}); err != nil {
		return nil, err
	}

	return recipe, nil
}

// ListRecipes retrieves a user's recipes, newest first (id descending
// over ULIDs), optionally filtered by tag and ingredient membership.
func (r *Repository) ListRecipes(ctx context.Context, filter RecipeFilter) ([]*model.Recipe, error) {
	builder := squirrel.Select(
		"r.id", "r.user_id", "r.title", "r.time_minutes",
		"r.price", "r.link", "r.created_at", "r.updated_at",
	).
		From("recipes r").
		Where(squirrel.Eq{"r.user_id": filter.UserID}).
		OrderBy("r.id DESC").
		PlaceholderFormat(squirrel.Dollar)

	if len(filter.TagIDs) > 0 {
		builder = builder.Where(facetCondition("recipe_tags", "tag_id", filter.TagIDs, filter.Match))
	}
	if len(filter.IngredientIDs) > 0 {
		builder = builder.Where(facetCondition("recipe_ingredients", "ingredient_id", filter.IngredientIDs, filter.Match))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build recipe list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*model.Recipe
	for rows.Next() {
		recipe, err := scanRecipeFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	if err := r.loadRecipeSets(ctx, recipes); err != nil {
		return nil, err
	}

	return recipes, nil
}

// UpdateRecipe updates a recipe's scalar fields, scoped to the owning
// user. Tag and ingredient sets are replaced separately.
func (r *Repository) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	query := `
		UPDATE recipes
		SET title = $3, time_minutes = $4, price = $5, link = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.pool.Exec(ctx, query,
		recipe.ID,
		recipe.UserID,
		recipe.Title,
		recipe.TimeMinutes,
		recipe.Price,
		recipe.Link,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}

	return nil
}

// ReplaceRecipeTags swaps a recipe's tag assignments for the given set.
// Callers must have verified recipe ownership first.
func (r *Repository) ReplaceRecipeTags(ctx context.Context, recipeID string, tagIDs []string) error {
	return r.replaceJoinRows(ctx, "recipe_tags", "tag_id", recipeID, tagIDs)
}

// ReplaceRecipeIngredients swaps a recipe's ingredient assignments for
// the given set. Callers must have verified recipe ownership first.
func (r *Repository) ReplaceRecipeIngredients(ctx context.Context, recipeID string, ingredientIDs []string) error {
	return r.replaceJoinRows(ctx, "recipe_ingredients", "ingredient_id", recipeID, ingredientIDs)
}

// DeleteRecipe removes a recipe, scoped to the owning user.
// Join rows are removed by ON DELETE CASCADE; tags and ingredients
// themselves are left untouched.
func (r *Repository) DeleteRecipe(ctx context.Context, userID, id string) error {
	query := `DELETE FROM recipes WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}

	return nil
}

// facetCondition builds the SQL condition for one filter facet.
//
// MatchAny keeps recipes referencing at least one of the ids, MatchAll
// only recipes referencing every id (counted DISTINCT so a duplicated
// id in the filter cannot be satisfied twice by one join row).
func facetCondition(joinTable, idColumn string, ids []string, match model.MatchMode) squirrel.Sqlizer {
	if match == model.MatchAll {
		return squirrel.Expr(
			fmt.Sprintf(
				"(SELECT COUNT(DISTINCT %[2]s) FROM %[1]s WHERE recipe_id = r.id AND %[2]s = ANY(?)) = ?",
				joinTable, idColumn,
			),
			ids, uniqueCount(ids),
		)
	}

	return squirrel.Expr(
		fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %[1]s WHERE recipe_id = r.id AND %[2]s = ANY(?))",
			joinTable, idColumn,
		),
		ids,
	)
}

// uniqueCount returns the number of distinct values in ids.
func uniqueCount(ids []string) int {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	return len(seen)
}

// replaceJoinRows clears and re-inserts join rows for one recipe in a
// single transaction.
func (r *Repository) replaceJoinRows(ctx context.Context, joinTable, idColumn, recipeID string, ids []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE recipe_id = $1", joinTable)
	if _, err := tx.Exec(ctx, deleteQuery, recipeID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", joinTable, err)
	}

	if err := insertJoinRows(ctx, tx, joinTable, idColumn, recipeID, ids); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s replacement: %w", joinTable, err)
	}

	return nil
}

// insertJoinRows batch-inserts join rows for one recipe.
func insertJoinRows(ctx context.Context, tx pgx.Tx, joinTable, idColumn, recipeID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (recipe_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		joinTable, idColumn,
	)

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(query, recipeID, id)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(ids); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert %s row %d: %w", joinTable, i, err)
		}
	}

	return nil
}

// loadRecipeSets populates Tags and Ingredients for the given recipes
// with one query per set, avoiding per-recipe roundtrips.
func (r *Repository) loadRecipeSets(ctx context.Context, recipes []*model.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	ids := make([]string, 0, len(recipes))
	byID := make(map[string]*model.Recipe, len(recipes))
	for _, recipe := range recipes {
		ids = append(ids, recipe.ID)
		byID[recipe.ID] = recipe
	}

	tagQuery := `
		SELECT rt.recipe_id, t.id, t.user_id, t.name, t.created_at, t.updated_at
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id = ANY($1)
		ORDER BY t.name ASC, t.id ASC
	`

	rows, err := r.pool.Query(ctx, tagQuery, ids)
	if err != nil {
		return fmt.Errorf("failed to load recipe tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID string
		var tag model.Tag
		if err := rows.Scan(&recipeID, &tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan recipe tag: %w", err)
		}
		if recipe, ok := byID[recipeID]; ok {
			recipe.Tags = append(recipe.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating recipe tags: %w", err)
	}

	ingQuery := `
		SELECT ri.recipe_id, i.id, i.user_id, i.name, i.created_at, i.updated_at
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ANY($1)
		ORDER BY i.name ASC, i.id ASC
	`

	ingRows, err := r.pool.Query(ctx, ingQuery, ids)
	if err != nil {
		return fmt.Errorf("failed to load recipe ingredients: %w", err)
	}
	defer ingRows.Close()

	for ingRows.Next() {
		var recipeID string
		var ing model.Ingredient
		if err := ingRows.Scan(&recipeID, &ing.ID, &ing.UserID, &ing.Name, &ing.CreatedAt, &ing.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		if recipe, ok := byID[recipeID]; ok {
			recipe.Ingredients = append(recipe.Ingredients, ing)
		}
	}
	if err := ingRows.Err(); err != nil {
		return fmt.Errorf("error iterating recipe ingredients: %w", err)
	}

	return nil
}

// scanRecipe scans a single row into a Recipe model.
func scanRecipe(row pgx.Row) (*model.Recipe, error) {
	var recipe model.Recipe
	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.TimeMinutes,
		&recipe.Price,
		&recipe.Link,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// scanRecipeFromRows scans a row from pgx.Rows into a Recipe model.
func scanRecipeFromRows(rows pgx.Rows) (*model.Recipe, error) {
	var recipe model.Recipe
	err := rows.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.TimeMinutes,
		&recipe.Price,
		&recipe.Link,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}
