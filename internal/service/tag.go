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

// ErrTagNotFound is returned when a tag does not exist or belongs to
// another user.
var ErrTagNotFound = errors.New("tag not found")

// TagService handles business logic for tags.
type TagService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
}

// NewTagService creates a new TagService.
func NewTagService(repo *repository.Repository, recorder metrics.Recorder) *TagService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TagService{
		repo:    repo,
		metrics: recorder,
	}
}

// CreateTagInput defines input for creating a tag.
type CreateTagInput struct {
	UserID string
	Name   string
}

// CreateTag creates a new tag for the user.
func (s *TagService) CreateTag(ctx context.Context, input CreateTagInput) (*model.Tag, error) {
	name, err := validateCatalogName(input.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tag := &model.Tag{
		ID:        ulid.Make().String(),
		UserID:    input.UserID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateTag(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.metrics.IncTagCreated()

	return tag, nil
}

// ListTagsInput defines input for listing tags.
type ListTagsInput struct {
	UserID string
	// AssignedOnly restricts the listing to tags assigned to at least
	// one of the user's recipes.
	AssignedOnly bool
}

// ListTags retrieves the user's tags ordered by name descending.
func (s *TagService) ListTags(ctx context.Context, input ListTagsInput) ([]*model.Tag, error) {
	return s.repo.ListTags(ctx, input.UserID, repository.CatalogFilter{
		AssignedOnly: input.AssignedOnly,
	})
}

// UpdateTagInput defines input for renaming a tag.
type UpdateTagInput struct {
	UserID string
	TagID  string
	Name   string
}

// UpdateTag renames one of the user's tags.
func (s *TagService) UpdateTag(ctx context.Context, input UpdateTagInput) (*model.Tag, error) {
	name, err := validateCatalogName(input.Name)
	if err != nil {
		return nil, err
	}

	tag, err := s.repo.GetTagByID(ctx, input.UserID, input.TagID)
	if err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	tag.Name = name
	tag.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTag(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	s.metrics.IncTagUpdated()

	return tag, nil
}

// DeleteTag deletes one of the user's tags. Assignments to the user's
// recipes are removed with it; the recipes themselves are untouched.
func (s *TagService) DeleteTag(ctx context.Context, userID, tagID string) error {
	if err := s.repo.DeleteTag(ctx, userID, tagID); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return ErrTagNotFound
		}
		return err
	}

	s.metrics.IncTagDeleted()

	return nil
}
