package dto

import (
	"github.com/forkful/forkful/internal/model"
)

// CreateCatalogItemRequest represents the body for creating a tag or
// ingredient. Both catalogs share the same single-field shape.
type CreateCatalogItemRequest struct {
	Name string `json:"name"`
}

// UpdateCatalogItemRequest represents the body for renaming a tag or
// ingredient.
type UpdateCatalogItemRequest struct {
	Name string `json:"name"`
}

// TagResponse represents a tag in API responses.
type TagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IngredientResponse represents an ingredient in API responses.
type IngredientResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ToTagResponse converts a Tag model to TagResponse.
func ToTagResponse(tag *model.Tag) TagResponse {
	return TagResponse{
		ID:   tag.ID,
		Name: tag.Name,
	}
}

// ToTagListResponse converts tags to the list shape (a bare array,
// mirroring the catalog wire contract).
func ToTagListResponse(tags []*model.Tag) []TagResponse {
	responses := make([]TagResponse, len(tags))
	for i, tag := range tags {
		responses[i] = ToTagResponse(tag)
	}
	return responses
}

// ToIngredientResponse converts an Ingredient model to IngredientResponse.
func ToIngredientResponse(ingredient *model.Ingredient) IngredientResponse {
	return IngredientResponse{
		ID:   ingredient.ID,
		Name: ingredient.Name,
	}
}

// ToIngredientListResponse converts ingredients to the list shape.
func ToIngredientListResponse(ingredients []*model.Ingredient) []IngredientResponse {
	responses := make([]IngredientResponse, len(ingredients))
	for i, ingredient := range ingredients {
		responses[i] = ToIngredientResponse(ingredient)
	}
	return responses
}
