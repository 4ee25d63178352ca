package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/model"
)

// TestPassword is the plaintext behind every factory user's password hash.
const TestPassword = "TestPassword123"

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetUsersSchema drops and recreates the users schema for tests. The
// init migration runs first so required extensions exist on a fresh
// database. Dependent tables lose their foreign keys in the process, so
// callers must reset those schemas afterwards too.
func ResetUsersSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrations(ctx, pool,
		"000001_init.up.sql",
		"000002_users.down.sql",
		"000002_users.up.sql",
	)
}

// ResetTokensSchema drops and recreates the auth_tokens schema for tests.
func ResetTokensSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrations(ctx, pool,
		"000003_auth_tokens.down.sql",
		"000003_auth_tokens.up.sql",
	)
}

// ResetCatalogSchema drops and recreates the tags, ingredients and recipes
// schemas for tests, in dependency order.
func ResetCatalogSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrations(ctx, pool,
		"000006_recipes.down.sql",
		"000005_ingredients.down.sql",
		"000004_tags.down.sql",
		"000004_tags.up.sql",
		"000005_ingredients.up.sql",
		"000006_recipes.up.sql",
	)
}

// ResetAuditSchema drops and recreates the audit_events schema for tests.
func ResetAuditSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrations(ctx, pool,
		"000007_audit_events.down.sql",
		"000007_audit_events.up.sql",
	)
}

// ResetWebhookSchema drops and recreates the webhook schema for tests.
func ResetWebhookSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return applyMigrations(ctx, pool,
		"000008_webhooks.down.sql",
		"000008_webhooks.up.sql",
	)
}

// applyMigrations executes migration files from migrations/ in the order
// given.
func applyMigrations(ctx context.Context, pool *pgxpool.Pool, files ...string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(root, "migrations", file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates an active test user whose password is TestPassword.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("hash test password: %v", err)
	}
	now := time.Now().UTC()
	return &model.User{
		ID:           fmt.Sprintf("user-%d", now.UnixNano()),
		Email:        model.NormalizeEmail(email),
		PasswordHash: hash,
		Name:         "Test User",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestStaffUser creates a test user with staff privileges.
func NewTestStaffUser(t testing.TB, email string) *model.User {
	t.Helper()
	user := NewTestUser(t, email)
	user.IsStaff = true
	return user
}

// NewTestAuthToken creates a test auth token with sensible defaults. The
// hash is a placeholder; tests exercising verification generate real tokens
// through the auth package.
func NewTestAuthToken(t testing.TB, userID string) *model.AuthToken {
	t.Helper()
	now := time.Now().UTC()
	return &model.AuthToken{
		ID:          fmt.Sprintf("token-%d", now.UnixNano()),
		UserID:      userID,
		TokenHash:   fmt.Sprintf("hash-%d", now.UnixNano()),
		TokenPrefix: fmt.Sprintf("%06x", now.UnixNano()%0xffffff),
		Name:        "Test Token",
		CreatedAt:   now,
	}
}

// NewTestTag creates a test tag owned by the given user.
func NewTestTag(t testing.TB, userID, name string) *model.Tag {
	t.Helper()
	now := time.Now().UTC()
	return &model.Tag{
		ID:        fmt.Sprintf("tag-%d", now.UnixNano()),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestIngredient creates a test ingredient owned by the given user.
func NewTestIngredient(t testing.TB, userID, name string) *model.Ingredient {
	t.Helper()
	now := time.Now().UTC()
	return &model.Ingredient{
		ID:        fmt.Sprintf("ingredient-%d", now.UnixNano()),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestRecipe creates a test recipe with sensible defaults and no
// assignments.
func NewTestRecipe(t testing.TB, userID, title string) *model.Recipe {
	t.Helper()
	now := time.Now().UTC()
	return &model.Recipe{
		ID:          fmt.Sprintf("recipe-%d", now.UnixNano()),
		UserID:      userID,
		Title:       title,
		TimeMinutes: 30,
		Price:       decimal.RequireFromString("12.50"),
		Link:        "",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestWebhookEndpoint creates an enabled test webhook endpoint
// subscribed to all recipe events. SecretHash is a placeholder shaped
// like a derived key; any string works as an HMAC key.
func NewTestWebhookEndpoint(t testing.TB, userID string) *model.WebhookEndpoint {
	t.Helper()
	now := time.Now().UTC()
	return &model.WebhookEndpoint{
		ID:         fmt.Sprintf("webhook-%d", now.UnixNano()),
		UserID:     userID,
		TargetURL:  "https://hooks.example.com/forkful",
		SecretHash: fmt.Sprintf("%064x", now.UnixNano()),
		Enabled:    true,
		EventTypes: append([]model.EventType(nil), model.ValidEventTypes...),
		Name:       "Test Webhook",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewTestAuditEvent creates a test audit event for the given actor.
func NewTestAuditEvent(t testing.TB, actorID string) *model.AuditEvent {
	t.Helper()
	now := time.Now().UTC()
	return &model.AuditEvent{
		ID:         fmt.Sprintf("audit-%d", now.UnixNano()),
		EventID:    fmt.Sprintf("%d-0", now.UnixMilli()),
		ActorID:    actorID,
		Action:     model.AuditActionCreated,
		ObjectType: model.AuditObjectRecipe,
		ObjectID:   fmt.Sprintf("recipe-%d", now.UnixNano()),
		Summary:    "created recipe",
		OccurredAt: now,
	}
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
