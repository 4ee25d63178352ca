package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/forkful/forkful/internal/metrics"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/repository"
)

// ErrIngredientNotFound is returned when an ingredient does not exist
// or belongs to another user.
var ErrIngredientNotFound = errors.New("ingredient not found")

// IngredientService handles business logic for ingredients.
type IngredientService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
}

// NewIngredientService creates a new IngredientService.
func NewIngredientService(repo *repository.Repository, recorder metrics.Recorder) *IngredientService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &IngredientService{
		repo:    repo,
		metrics: recorder,
	}
}

// CreateIngredientInput defines input for creating an ingredient.
type CreateIngredientInput struct {
	UserID string
	Name   string
}

// CreateIngredient creates a new ingredient for the user.
func (s *IngredientService) CreateIngredient(ctx context.Context, input CreateIngredientInput) (*model.Ingredient, error) {
	name, err := validateCatalogName(input.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ingredient := &model.Ingredient{
		ID:        ulid.Make().String(),
		UserID:    input.UserID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateIngredient(ctx, ingredient); err != nil {
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}

	s.metrics.IncIngredientCreated()

	return ingredient, nil
}

// ListIngredientsInput defines input for listing ingredients.
type ListIngredientsInput struct {
	UserID string
	// AssignedOnly restricts the listing to ingredients assigned to at
	// least one of the user's recipes.
	AssignedOnly bool
}

// ListIngredients retrieves the user's ingredients ordered by name
// descending.
func (s *IngredientService) ListIngredients(ctx context.Context, input ListIngredientsInput) ([]*model.Ingredient, error) {
	return s.repo.ListIngredients(ctx, input.UserID, repository.CatalogFilter{
		AssignedOnly: input.AssignedOnly,
	})
}

// UpdateIngredientInput defines input for renaming an ingredient.
type UpdateIngredientInput struct {
	UserID       string
	IngredientID string
	Name         string
}

// UpdateIngredient renames one of the user's ingredients.
func (s *IngredientService) UpdateIngredient(ctx context.Context, input UpdateIngredientInput) (*model.Ingredient, error) {
	name, err := validateCatalogName(input.Name)
	if err != nil {
		return nil, err
	}

	ingredient, err := s.repo.GetIngredientByID(ctx, input.UserID, input.IngredientID)
	if err != nil {
		if errors.Is(err, repository.ErrIngredientNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, err
	}

	ingredient.Name = name
	ingredient.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateIngredient(ctx, ingredient); err != nil {
		if errors.Is(err, repository.ErrIngredientNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, err
	}

	s.metrics.IncIngredientUpdated()

	return ingredient, nil
}

// DeleteIngredient deletes one of the user's ingredients. Assignments
// to the user's recipes are removed with it; the recipes themselves are
// untouched.
func (s *IngredientService) DeleteIngredient(ctx context.Context, userID, ingredientID string) error {
	if err := s.repo.DeleteIngredient(ctx, userID, ingredientID); err != nil {
		if errors.Is(err, repository.ErrIngredientNotFound) {
			return ErrIngredientNotFound
		}
		return err
	}

	s.metrics.IncIngredientDeleted()

	return nil
}
