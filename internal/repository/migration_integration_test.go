//go:build integration

package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/forkful/forkful/internal/testutil"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	// Verify all expected tables exist
	tables := []string{
		"users",
		"auth_tokens",
		"tags",
		"ingredients",
		"recipes",
		"recipe_tags",
		"recipe_ingredients",
		"audit_events",
		"webhook_endpoints",
		"webhook_deliveries",
	}

	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_UsersTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"email",
		"password_hash",
		"name",
		"is_active",
		"is_staff",
		"is_superuser",
		"last_login_at",
		"created_at",
		"updated_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "users", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in users table", col)
			}
		})
	}
}

func TestIntegrationMigration_UsersConstraints(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	// Verify lowercase email check constraint
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ('test-id', 'Upper@Example.com', 'hash')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for non-lowercase email")
	}

	// Verify minimum email length constraint
	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ('test-id', 'ab', 'hash')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for email < 3 chars")
	}

	// Verify email uniqueness
	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ('dup-1', 'dup@example.com', 'hash')
	`)
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ('dup-2', 'dup@example.com', 'hash')
	`)
	if err == nil {
		t.Error("Expected unique violation for duplicate email")
	}
}

func TestIntegrationMigration_AuthTokensTableSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"user_id",
		"token_hash",
		"token_prefix",
		"name",
		"revoked_at",
		"last_used_at",
		"created_at",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "auth_tokens", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in auth_tokens table", col)
			}
		})
	}
}

func TestIntegrationMigration_RecipesConstraints(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ('recipe-owner', 'recipes@example.com', 'hash')
	`)
	if err != nil {
		t.Fatalf("insert owner failed: %v", err)
	}

	// Verify time_minutes check constraint
	_, err = pool.Exec(ctx, `
		INSERT INTO recipes (id, user_id, title, time_minutes, price)
		VALUES ('test-id', 'recipe-owner', 'Negative Time', -5, 10.00)
	`)
	if err == nil {
		t.Error("Expected check constraint violation for negative time_minutes")
	}

	// Verify price check constraint
	_, err = pool.Exec(ctx, `
		INSERT INTO recipes (id, user_id, title, time_minutes, price)
		VALUES ('test-id', 'recipe-owner', 'Negative Price', 5, -1.00)
	`)
	if err == nil {
		t.Error("Expected check constraint violation for negative price")
	}

	// Verify title length constraint
	_, err = pool.Exec(ctx, `
		INSERT INTO recipes (id, user_id, title, time_minutes, price)
		VALUES ('test-id', 'recipe-owner', '', 5, 1.00)
	`)
	if err == nil {
		t.Error("Expected check constraint violation for empty title")
	}
}

func TestIntegrationMigration_AuditEventsSchema(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	expectedColumns := []string{
		"id",
		"event_id",
		"actor_id",
		"action",
		"object_type",
		"object_id",
		"summary",
		"request_id",
		"occurred_at",
		"created_at",
	}

	for _, col := range expectedColumns {
		exists, err := columnExists(ctx, pool, "audit_events", col)
		if err != nil {
			t.Fatalf("columnExists failed: %v", err)
		}
		if !exists {
			t.Errorf("Column %q should exist in audit_events table", col)
		}
	}

	// Verify action check constraint
	_, err := pool.Exec(ctx, `
		INSERT INTO audit_events (id, event_id, actor_id, action, object_type, object_id, occurred_at)
		VALUES ('test-id', '1-0', 'actor', 'exploded', 'recipe', 'obj', NOW())
	`)
	if err == nil {
		t.Error("Expected check constraint violation for invalid action")
	}
}

func TestIntegrationMigration_WebhookConstraints(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ('hook-owner', 'hooks@example.com', 'hash')
	`)
	if err != nil {
		t.Fatalf("insert owner failed: %v", err)
	}

	// Verify event_types cardinality constraint
	_, err = pool.Exec(ctx, `
		INSERT INTO webhook_endpoints (id, user_id, target_url, secret_hash, event_types)
		VALUES ('test-id', 'hook-owner', 'https://example.com/hook', 'hash', '{}')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for empty event_types")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO webhook_endpoints (id, user_id, target_url, secret_hash, event_types)
		VALUES ('hook-1', 'hook-owner', 'https://example.com/hook', 'hash', '{recipe.created}')
	`)
	if err != nil {
		t.Fatalf("insert endpoint failed: %v", err)
	}

	// Verify delivery status check constraint
	_, err = pool.Exec(ctx, `
		INSERT INTO webhook_deliveries (id, endpoint_id, event_id, event_type, payload_json, status)
		VALUES ('test-id', 'hook-1', 'evt-1', 'recipe.created', '{}', 'lost')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for invalid delivery status")
	}

	// Verify (event, endpoint) uniqueness
	_, err = pool.Exec(ctx, `
		INSERT INTO webhook_deliveries (id, endpoint_id, event_id, event_type, payload_json)
		VALUES ('dlv-1', 'hook-1', 'evt-1', 'recipe.created', '{}')
	`)
	if err != nil {
		t.Fatalf("first delivery insert failed: %v", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO webhook_deliveries (id, endpoint_id, event_id, event_type, payload_json)
		VALUES ('dlv-2', 'hook-1', 'evt-1', 'recipe.created', '{}')
	`)
	if err == nil {
		t.Error("Expected unique violation for duplicate (event, endpoint)")
	}
}

func TestIntegrationMigration_RollbackRecipes(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	// Apply down migration
	downPath := filepath.Join(root, "migrations", "000006_recipes.down.sql")
	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		t.Fatalf("read down migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}

	for _, table := range []string{"recipes", "recipe_tags", "recipe_ingredients"} {
		exists, err := tableExists(ctx, pool, table)
		if err != nil {
			t.Fatalf("tableExists failed: %v", err)
		}
		if exists {
			t.Errorf("Table %q should not exist after rollback", table)
		}
	}

	// Re-apply up migration for cleanup
	upPath := filepath.Join(root, "migrations", "000006_recipes.up.sql")
	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		t.Fatalf("reapply up migration: %v", err)
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := newMigrationTestEnv(t)

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("ProjectRoot failed: %v", err)
	}

	// Every up migration uses IF NOT EXISTS, so a second apply must not fail
	ups := []string{
		"000001_init.up.sql",
		"000002_users.up.sql",
		"000003_auth_tokens.up.sql",
		"000004_tags.up.sql",
		"000005_ingredients.up.sql",
		"000006_recipes.up.sql",
		"000007_audit_events.up.sql",
		"000008_webhooks.up.sql",
	}

	for _, file := range ups {
		upSQL, err := os.ReadFile(filepath.Join(root, "migrations", file))
		if err != nil {
			t.Fatalf("read migration %s: %v", file, err)
		}
		if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
			t.Fatalf("second apply of %s should not fail: %v", file, err)
		}
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newMigrationTestEnv(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetUsersSchema(ctx, pool); err != nil {
		t.Fatalf("reset users schema: %v", err)
	}
	if err := testutil.ResetTokensSchema(ctx, pool); err != nil {
		t.Fatalf("reset auth_tokens schema: %v", err)
	}
	if err := testutil.ResetCatalogSchema(ctx, pool); err != nil {
		t.Fatalf("reset catalog schema: %v", err)
	}
	if err := testutil.ResetAuditSchema(ctx, pool); err != nil {
		t.Fatalf("reset audit schema: %v", err)
	}
	if err := testutil.ResetWebhookSchema(ctx, pool); err != nil {
		t.Fatalf("reset webhook schema: %v", err)
	}

	return ctx, pool
}
