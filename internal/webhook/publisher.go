package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/forkful/forkful/internal/model"
)

// PublishTimeout bounds the fan-out database writes for async publishes.
const PublishTimeout = 2 * time.Second

// Publisher creates webhook delivery records when recipe events occur.
type Publisher struct {
	repo   *Repository
	logger *slog.Logger
}

// NewPublisher creates a new webhook publisher.
func NewPublisher(repo *Repository, logger *slog.Logger) *Publisher {
	return &Publisher{
		repo:   repo,
		logger: logger.With("component", "webhook.publisher"),
	}
}

// PublishRecipeEvent creates deliveries for a created or updated recipe,
// fanning out to every enabled endpoint subscribed to the event type.
func (p *Publisher) PublishRecipeEvent(ctx context.Context, eventType model.EventType, recipe *model.Recipe) error {
	data := map[string]any{
		"recipe_id":      recipe.ID,
		"title":          recipe.Title,
		"time_minutes":   recipe.TimeMinutes,
		"price":          recipe.Price.StringFixed(2),
		"tag_ids":        recipe.TagIDs(),
		"ingredient_ids": recipe.IngredientIDs(),
	}
	if recipe.Link != "" {
		data["link"] = recipe.Link
	}

	return p.publish(ctx, recipe.UserID, eventType, data)
}

// PublishRecipeDeleted creates deliveries for a deleted recipe. Only the
// id is sent; the rest of the recipe no longer exists.
func (p *Publisher) PublishRecipeDeleted(ctx context.Context, userID, recipeID string) error {
	data := map[string]any{
		"recipe_id": recipeID,
	}

	return p.publish(ctx, userID, model.EventTypeRecipeDeleted, data)
}

// PublishRecipeEventAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishRecipeEventAsync(eventType model.EventType, recipe *model.Recipe) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		if err := p.PublishRecipeEvent(ctx, eventType, recipe); err != nil {
			p.logger.Warn("failed to publish webhook event",
				"event_type", eventType,
				"recipe_id", recipe.ID,
				"error", err,
			)
		}
	}()
}

// PublishRecipeDeletedAsync publishes without blocking the caller.
func (p *Publisher) PublishRecipeDeletedAsync(userID, recipeID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		if err := p.PublishRecipeDeleted(ctx, userID, recipeID); err != nil {
			p.logger.Warn("failed to publish webhook event",
				"event_type", model.EventTypeRecipeDeleted,
				"recipe_id", recipeID,
				"error", err,
			)
		}
	}()
}

// publish fans a single event out to the user's subscribed endpoints.
// Every delivery for the event shares one event id, so replayed fan-out
// cannot double-queue an endpoint.
func (p *Publisher) publish(ctx context.Context, userID string, eventType model.EventType, data map[string]any) error {
	endpoints, err := p.repo.ListActiveEndpointsByUserAndEvent(ctx, userID, eventType)
	if err != nil {
		return fmt.Errorf("list active endpoints: %w", err)
	}

	if len(endpoints) == 0 {
		return nil
	}

	eventID := ulid.Make().String()
	payload := model.WebhookPayload{
		EventType: string(eventType),
		EventID:   eventID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now().UTC()
	for _, endpoint := range endpoints {
		delivery := &model.WebhookDelivery{
			ID:           ulid.Make().String(),
			EndpointID:   endpoint.ID,
			EventID:      eventID,
			EventType:    eventType,
			PayloadJSON:  string(payloadJSON),
			Status:       model.DeliveryStatusPending,
			AttemptCount: 0,
			MaxAttempts:  DefaultMaxAttempts,
			NextRetryAt:  now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := p.repo.CreateDelivery(ctx, delivery); err != nil {
			p.logger.Warn("failed to create webhook delivery",
				"endpoint_id", endpoint.ID,
				"event_id", eventID,
				"error", err,
			)
			continue
		}

		p.logger.Debug("webhook delivery created",
			"delivery_id", delivery.ID,
			"endpoint_id", endpoint.ID,
			"event_type", eventType,
		)
	}

	return nil
}
