package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/forkful/forkful/internal/model"
)

// Common errors for auth token repository operations.
var (
	ErrTokenNotFound = errors.New("token not found")
)

const tokenColumns = `id, user_id, token_hash, token_prefix, name, revoked_at, last_used_at, created_at`

// CreateAuthToken inserts a new auth token into the database.
func (r *Repository) CreateAuthToken(ctx context.Context, token *model.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (id, user_id, token_hash, token_prefix, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.TokenPrefix,
		token.Name,
		token.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create auth token: %w", err)
	}

	return nil
}

// GetAuthTokenByID retrieves an auth token by its ID.
func (r *Repository) GetAuthTokenByID(ctx context.Context, id string) (*model.AuthToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE id = $1`

	token, err := scanAuthToken(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get auth token by ID: %w", err)
	}

	return token, nil
}

// GetAuthTokensByPrefix retrieves all active auth tokens matching a prefix.
// Used during authentication to find candidate tokens for verification.
func (r *Repository) GetAuthTokensByPrefix(ctx context.Context, prefix string) ([]*model.AuthToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE token_prefix = $1 AND revoked_at IS NULL`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth tokens by prefix: %w", err)
	}
	defer rows.Close()

	var tokens []*model.AuthToken
	for rows.Next() {
		token, err := scanAuthTokenFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auth token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth tokens: %w", err)
	}

	return tokens, nil
}

// ListAuthTokensByUserID retrieves all auth tokens for a user.
func (r *Repository) ListAuthTokensByUserID(ctx context.Context, userID string) ([]*model.AuthToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*model.AuthToken
	for rows.Next() {
		token, err := scanAuthTokenFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auth token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auth tokens: %w", err)
	}

	return tokens, nil
}

// RevokeAuthToken revokes an auth token by setting revoked_at.
func (r *Repository) RevokeAuthToken(ctx context.Context, id string) error {
	query := `
		UPDATE auth_tokens
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke auth token: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTokenNotFound
	}

	return nil
}

// RevokeAuthTokensByUserID revokes every active token a user holds.
// Used when an account is deactivated through the admin API.
func (r *Repository) RevokeAuthTokensByUserID(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE auth_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to revoke auth tokens for user: %w", err)
	}

	return result.RowsAffected(), nil
}

// UpdateAuthTokenLastUsed updates the last_used_at timestamp.
// Should be called asynchronously after successful authentication.
func (r *Repository) UpdateAuthTokenLastUsed(ctx context.Context, id string) error {
	query := `
		UPDATE auth_tokens
		SET last_used_at = $2
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update auth token last used: %w", err)
	}

	return nil
}

// scanAuthToken scans a single row into an AuthToken model.
func scanAuthToken(row pgx.Row) (*model.AuthToken, error) {
	var token model.AuthToken
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.TokenPrefix,
		&token.Name,
		&token.RevokedAt,
		&token.LastUsedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// scanAuthTokenFromRows scans a row from pgx.Rows into an AuthToken model.
func scanAuthTokenFromRows(rows pgx.Rows) (*model.AuthToken, error) {
	var token model.AuthToken
	err := rows.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.TokenPrefix,
		&token.Name,
		&token.RevokedAt,
		&token.LastUsedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
