package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/forkful/forkful/internal/metrics"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/repository"
)

// ErrRecipeNotFound is returned when a recipe does not exist or belongs
// to another user.
var ErrRecipeNotFound = errors.New("recipe not found")

// RecipeService handles business logic for recipes.
type RecipeService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(repo *repository.Repository, recorder metrics.Recorder) *RecipeService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RecipeService{
		repo:    repo,
		metrics: recorder,
	}
}

// CreateRecipeInput defines input for creating a recipe.
type CreateRecipeInput struct {
	UserID        string
	Title         string
	TimeMinutes   int
	Price         decimal.Decimal
	Link          string
	TagIDs        []string
	IngredientIDs []string
}

// CreateRecipe creates a new recipe with its tag and ingredient
// assignments. Assigned ids must name records owned by the same user.
func (s *RecipeService) CreateRecipe(ctx context.Context, input CreateRecipeInput) (*model.Recipe, error) {
	title, err := s.validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	if err := s.validateScalars(input.TimeMinutes, input.Price, input.Link); err != nil {
		return nil, err
	}

	tags, err := s.resolveTags(ctx, input.UserID, input.TagIDs)
	if err != nil {
		return nil, err
	}
	ingredients, err := s.resolveIngredients(ctx, input.UserID, input.IngredientIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recipe := &model.Recipe{
		ID:          ulid.Make().String(),
		UserID:      input.UserID,
		Title:       title,
		TimeMinutes: input.TimeMinutes,
		Price:       input.Price,
		Link:        strings.TrimSpace(input.Link),
		Tags:        tags,
		Ingredients: ingredients,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.metrics.IncRecipeCreated()

	// Reload so the assigned sets come back in canonical order.
	return s.GetRecipe(ctx, input.UserID, recipe.ID)
}

// GetRecipe retrieves one of the user's recipes with its assigned sets.
func (s *RecipeService) GetRecipe(ctx context.Context, userID, id string) (*model.Recipe, error) {
	recipe, err := s.repo.GetRecipeByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return recipe, nil
}

// ListRecipesInput defines input for listing recipes.
type ListRecipesInput struct {
	UserID        string
	TagIDs        []string
	IngredientIDs []string
	// Match selects within-facet semantics: "any" (default) keeps
	// recipes referencing at least one given id, "all" only recipes
	// referencing every given id.
	Match string
}

// ListRecipes retrieves the user's recipes, newest first, optionally
// filtered by tag and ingredient assignment. Ids unknown to the user
// simply never match.
func (s *RecipeService) ListRecipes(ctx context.Context, input ListRecipesInput) ([]*model.Recipe, error) {
	match := model.MatchAny
	if input.Match != "" {
		match = model.MatchMode(input.Match)
		if !match.IsValid() {
			return nil, newValidationError("match", `must be "any" or "all"`)
		}
	}

	return s.repo.ListRecipes(ctx, repository.RecipeFilter{
		UserID:        input.UserID,
		TagIDs:        input.TagIDs,
		IngredientIDs: input.IngredientIDs,
		Match:         match,
	})
}

// UpdateRecipeInput defines input for updating a recipe.
// Nil fields are left unchanged; non-nil id slices replace the full set.
type UpdateRecipeInput struct {
	UserID        string
	RecipeID      string
	Title         *string
	TimeMinutes   *int
	Price         *decimal.Decimal
	Link          *string
	TagIDs        *[]string
	IngredientIDs *[]string
}

// UpdateRecipe applies a partial update to one of the user's recipes.
func (s *RecipeService) UpdateRecipe(ctx context.Context, input UpdateRecipeInput) (*model.Recipe, error) {
	recipe, err := s.repo.GetRecipeByID(ctx, input.UserID, input.RecipeID)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		title, err := s.validateTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		recipe.Title = title
	}
	if input.TimeMinutes != nil {
		recipe.TimeMinutes = *input.TimeMinutes
	}
	if input.Price != nil {
		recipe.Price = *input.Price
	}
	if input.Link != nil {
		recipe.Link = strings.TrimSpace(*input.Link)
	}
	if err := s.validateScalars(recipe.TimeMinutes, recipe.Price, recipe.Link); err != nil {
		return nil, err
	}

	// Resolve replacement sets before touching the database so a bad id
	// leaves the recipe unchanged.
	var newTags []model.Tag
	if input.TagIDs != nil {
		newTags, err = s.resolveTags(ctx, input.UserID, *input.TagIDs)
		if err != nil {
			return nil, err
		}
	}
	var newIngredients []model.Ingredient
	if input.IngredientIDs != nil {
		newIngredients, err = s.resolveIngredients(ctx, input.UserID, *input.IngredientIDs)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateRecipe(ctx, recipe); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	if input.TagIDs != nil {
		ids := make([]string, 0, len(newTags))
		for _, t := range newTags {
			ids = append(ids, t.ID)
		}
		if err := s.repo.ReplaceRecipeTags(ctx, recipe.ID, ids); err != nil {
			return nil, fmt.Errorf("failed to replace recipe tags: %w", err)
		}
	}
	if input.IngredientIDs != nil {
		ids := make([]string, 0, len(newIngredients))
		for _, ing := range newIngredients {
			ids = append(ids, ing.ID)
		}
		if err := s.repo.ReplaceRecipeIngredients(ctx, recipe.ID, ids); err != nil {
			return nil, fmt.Errorf("failed to replace recipe ingredients: %w", err)
		}
	}

	s.metrics.IncRecipeUpdated()

	return s.GetRecipe(ctx, input.UserID, recipe.ID)
}

// DeleteRecipe deletes one of the user's recipes. Assigned tags and
// ingredients survive; only the assignments go away.
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, recipeID string) error {
	if err := s.repo.DeleteRecipe(ctx, userID, recipeID); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return ErrRecipeNotFound
		}
		return err
	}

	s.metrics.IncRecipeDeleted()

	return nil
}

// validateTitle trims and checks a recipe title.
func (s *RecipeService) validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", newValidationError("title", "must not be blank")
	}
	if len(trimmed) > maxNameLength {
		return "", newValidationError("title", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return trimmed, nil
}

// validateScalars checks the recipe's numeric fields and link.
func (s *RecipeService) validateScalars(timeMinutes int, price decimal.Decimal, link string) error {
	if timeMinutes < 0 {
		return newValidationError("time_minutes", "must not be negative")
	}
	if price.IsNegative() {
		return newValidationError("price", "must not be negative")
	}
	if price.Exponent() < -2 {
		return newValidationError("price", "must have at most 2 decimal places")
	}
	if len(link) > maxNameLength {
		return newValidationError("link", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return nil
}

// resolveTags looks up the given tag ids scoped to the user and returns
// the matching records. Any id that does not name one of the user's own
// tags is a validation error; ids are never resolved across owners.
func (s *RecipeService) resolveTags(ctx context.Context, userID string, ids []string) ([]model.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := s.repo.GetTagsByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}

	byID := make(map[string]*model.Tag, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	tags := make([]model.Tag, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		tag, ok := byID[id]
		if !ok {
			return nil, newValidationError("tag_ids", fmt.Sprintf("unknown tag id: %s", id))
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		tags = append(tags, *tag)
	}

	return tags, nil
}

// resolveIngredients looks up the given ingredient ids scoped to the
// user, mirroring resolveTags.
func (s *RecipeService) resolveIngredients(ctx context.Context, userID string, ids []string) ([]model.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := s.repo.GetIngredientsByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ingredients: %w", err)
	}

	byID := make(map[string]*model.Ingredient, len(found))
	for _, ing := range found {
		byID[ing.ID] = ing
	}

	ingredients := make([]model.Ingredient, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		ing, ok := byID[id]
		if !ok {
			return nil, newValidationError("ingredient_ids", fmt.Sprintf("unknown ingredient id: %s", id))
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ingredients = append(ingredients, *ing)
	}

	return ingredients, nil
}
