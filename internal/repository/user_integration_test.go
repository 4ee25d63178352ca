//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forkful/forkful/internal/testutil"
)

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository_CreateUser(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail("create"))

	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}

	if retrieved.Email != user.Email {
		t.Errorf("Email mismatch: got %q, want %q", retrieved.Email, user.Email)
	}
	if !retrieved.IsActive {
		t.Error("User should be active")
	}
	if retrieved.IsStaff {
		t.Error("User should not be staff by default")
	}
	if retrieved.LastLoginAt != nil {
		t.Error("LastLoginAt should be nil before first login")
	}
}

func TestIntegrationUserRepository_CreateUser_DuplicateEmail(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	email := testutil.UniqueEmail("dup")
	user1 := testutil.NewTestUser(t, email)
	user2 := testutil.NewTestUser(t, email)
	user2.ID = testutil.UniqueID("user")

	if err := repo.CreateUser(ctx, user1); err != nil {
		t.Fatalf("CreateUser (first) failed: %v", err)
	}

	err := repo.CreateUser(ctx, user2)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got: %v", err)
	}
}

func TestIntegrationUserRepository_GetUserByEmail(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	email := testutil.UniqueEmail("byemail")
	user := testutil.NewTestUser(t, email)

	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}

	if retrieved.ID != user.ID {
		t.Errorf("ID mismatch: got %q, want %q", retrieved.ID, user.ID)
	}
}

func TestIntegrationUserRepository_GetUserByEmail_NotFound(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	_, err := repo.GetUserByEmail(ctx, "missing@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestIntegrationUserRepository_UpdateUser(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail("update"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user.Name = "Renamed"
	user.IsActive = false
	if err := repo.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}

	if retrieved.Name != "Renamed" {
		t.Errorf("Name not updated: got %q, want %q", retrieved.Name, "Renamed")
	}
	if retrieved.IsActive {
		t.Error("IsActive should be false after update")
	}
	if !retrieved.UpdatedAt.After(user.CreatedAt) {
		t.Error("UpdatedAt should be after CreatedAt")
	}
}

func TestIntegrationUserRepository_UpdateUser_NotFound(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail("ghost"))

	err := repo.UpdateUser(ctx, user)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestIntegrationUserRepository_UpdateUserLastLogin(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueEmail("login"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := repo.UpdateUserLastLogin(ctx, user.ID); err != nil {
		t.Fatalf("UpdateUserLastLogin failed: %v", err)
	}

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}

	if retrieved.LastLoginAt == nil {
		t.Fatal("LastLoginAt should be set")
	}
	if time.Since(*retrieved.LastLoginAt) > time.Minute {
		t.Errorf("LastLoginAt too old: %v", retrieved.LastLoginAt)
	}
}

func TestIntegrationUserRepository_ListUsers_Pagination(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	for i := 0; i < 5; i++ {
		user := testutil.NewTestUser(t, testutil.UniqueEmail("page"))
		if err := repo.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		time.Sleep(1 * time.Millisecond) // Ensure distinct factory ids
	}

	users, nextCursor, err := repo.ListUsers(ctx, UserFilter{}, "", 2)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}

	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}
	if nextCursor == "" {
		t.Error("Expected nextCursor for more pages")
	}

	users2, nextCursor2, err := repo.ListUsers(ctx, UserFilter{}, nextCursor, 2)
	if err != nil {
		t.Fatalf("ListUsers (page 2) failed: %v", err)
	}

	if len(users2) != 2 {
		t.Errorf("Expected 2 users on page 2, got %d", len(users2))
	}

	// IDs should not overlap across pages
	for _, u1 := range users {
		for _, u2 := range users2 {
			if u1.ID == u2.ID {
				t.Errorf("Duplicate user ID across pages: %s", u1.ID)
			}
		}
	}

	users3, _, err := repo.ListUsers(ctx, UserFilter{}, nextCursor2, 2)
	if err != nil {
		t.Fatalf("ListUsers (page 3) failed: %v", err)
	}

	if len(users3) != 1 {
		t.Errorf("Expected 1 user on page 3, got %d", len(users3))
	}
}

func TestIntegrationUserRepository_ListUsers_InvalidCursor(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	_, _, err := repo.ListUsers(ctx, UserFilter{}, "!!!bad!!!", 10)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("Expected ErrInvalidCursor, got: %v", err)
	}
}

func TestIntegrationUserRepository_ListUsers_QueryFilter(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	alice := testutil.NewTestUser(t, testutil.UniqueEmail("alice"))
	alice.Name = "Alice Baker"
	if err := repo.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser (alice) failed: %v", err)
	}

	bob := testutil.NewTestUser(t, testutil.UniqueEmail("bob"))
	bob.Name = "Bob Cook"
	if err := repo.CreateUser(ctx, bob); err != nil {
		t.Fatalf("CreateUser (bob) failed: %v", err)
	}

	// Substring match on email, case-insensitive
	users, _, err := repo.ListUsers(ctx, UserFilter{Query: "ALICE"}, "", 10)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].ID != alice.ID {
		t.Errorf("Query by email should match alice only, got %d users", len(users))
	}

	// Substring match on name
	users, _, err = repo.ListUsers(ctx, UserFilter{Query: "cook"}, "", 10)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].ID != bob.ID {
		t.Errorf("Query by name should match bob only, got %d users", len(users))
	}
}

func TestIntegrationUserRepository_ListUsers_ActiveOnly(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	active := testutil.NewTestUser(t, testutil.UniqueEmail("active"))
	if err := repo.CreateUser(ctx, active); err != nil {
		t.Fatalf("CreateUser (active) failed: %v", err)
	}

	inactive := testutil.NewTestUser(t, testutil.UniqueEmail("inactive"))
	inactive.IsActive = false
	if err := repo.CreateUser(ctx, inactive); err != nil {
		t.Fatalf("CreateUser (inactive) failed: %v", err)
	}

	users, _, err := repo.ListUsers(ctx, UserFilter{ActiveOnly: true}, "", 10)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}

	for _, u := range users {
		if !u.IsActive {
			t.Errorf("Inactive user %s in active-only listing", u.ID)
		}
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newUserTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetUsersSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset users schema: %v", err)
	}

	return ctx, repo
}
