package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/forkful/forkful/internal/model"
)

// CreateRecipeRequest represents the request body for creating a recipe.
// Price accepts both a JSON string ("18.00") and a bare number.
type CreateRecipeRequest struct {
	Title         string          `json:"title"`
	TimeMinutes   int             `json:"time_minutes"`
	Price         decimal.Decimal `json:"price"`
	Link          string          `json:"link,omitempty"`
	TagIDs        []string        `json:"tag_ids,omitempty"`
	IngredientIDs []string        `json:"ingredient_ids,omitempty"`
}

// UpdateRecipeRequest represents a partial recipe update. Absent fields
// are left untouched; tag_ids/ingredient_ids replace the whole set.
type UpdateRecipeRequest struct {
	Title         *string          `json:"title,omitempty"`
	TimeMinutes   *int             `json:"time_minutes,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Link          *string          `json:"link,omitempty"`
	TagIDs        *[]string        `json:"tag_ids,omitempty"`
	IngredientIDs *[]string        `json:"ingredient_ids,omitempty"`
}

// RecipeListItem represents a recipe in list responses. Assigned sets
// appear as ids only; the detail endpoint embeds the full records.
// Price is a fixed two-decimal string ("18.00"); Decimal.String would
// drop the trailing zeros.
type RecipeListItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	TimeMinutes   int       `json:"time_minutes"`
	Price         string    `json:"price"`
	Link          string    `json:"link,omitempty"`
	TagIDs        []string  `json:"tag_ids"`
	IngredientIDs []string  `json:"ingredient_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RecipeResponse represents a recipe detail with embedded tag and
// ingredient records.
type RecipeResponse struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	TimeMinutes int                  `json:"time_minutes"`
	Price       string               `json:"price"`
	Link        string               `json:"link,omitempty"`
	Tags        []TagResponse        `json:"tags"`
	Ingredients []IngredientResponse `json:"ingredients"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ToRecipeListItem converts a Recipe model to its list shape.
func ToRecipeListItem(recipe *model.Recipe) RecipeListItem {
	return RecipeListItem{
		ID:            recipe.ID,
		Title:         recipe.Title,
		TimeMinutes:   recipe.TimeMinutes,
		Price:         recipe.Price.StringFixed(2),
		Link:          recipe.Link,
		TagIDs:        recipe.TagIDs(),
		IngredientIDs: recipe.IngredientIDs(),
		CreatedAt:     recipe.CreatedAt,
		UpdatedAt:     recipe.UpdatedAt,
	}
}

// ToRecipeListResponse converts recipes to the list shape (bare array,
// newest first as loaded).
func ToRecipeListResponse(recipes []*model.Recipe) []RecipeListItem {
	responses := make([]RecipeListItem, len(recipes))
	for i, recipe := range recipes {
		responses[i] = ToRecipeListItem(recipe)
	}
	return responses
}

// ToRecipeResponse converts a Recipe model to its detail shape.
func ToRecipeResponse(recipe *model.Recipe) *RecipeResponse {
	tags := make([]TagResponse, len(recipe.Tags))
	for i := range recipe.Tags {
		tags[i] = ToTagResponse(&recipe.Tags[i])
	}
	ingredients := make([]IngredientResponse, len(recipe.Ingredients))
	for i := range recipe.Ingredients {
		ingredients[i] = ToIngredientResponse(&recipe.Ingredients[i])
	}
	return &RecipeResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		TimeMinutes: recipe.TimeMinutes,
		Price:       recipe.Price.StringFixed(2),
		Link:        recipe.Link,
		Tags:        tags,
		Ingredients: ingredients,
		CreatedAt:   recipe.CreatedAt,
		UpdatedAt:   recipe.UpdatedAt,
	}
}
