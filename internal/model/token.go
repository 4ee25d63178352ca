// Package model defines domain entities for the application.
package model

import "time"

// AuthToken represents an opaque bearer credential issued at login.
// The plaintext token is shown exactly once; only its Argon2id hash is
// stored, indexed by a short public prefix for lookup.
type AuthToken struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TokenHash   string     `json:"-"` // Never serialize
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsRevoked returns true if the token has been revoked.
func (t *AuthToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	TokenID     string
	TokenPrefix string
	UserID      string
	IsStaff     bool
	IsSuperuser bool
}

// AuthTokenResponse represents a token record (without secrets).
type AuthTokenResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	TokenPrefix string     `json:"token_prefix"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	Revoked     bool       `json:"revoked"`
}

// ToResponse converts an AuthToken to AuthTokenResponse.
func (t *AuthToken) ToResponse() AuthTokenResponse {
	return AuthTokenResponse{
		ID:          t.ID,
		Name:        t.Name,
		TokenPrefix: t.TokenPrefix,
		CreatedAt:   t.CreatedAt,
		LastUsedAt:  t.LastUsedAt,
		Revoked:     t.IsRevoked(),
	}
}

// AuthTokenCreateResponse includes the plaintext token (shown only once).
type AuthTokenCreateResponse struct {
	ID          string    `json:"id"`
	Token       string    `json:"token"` // Plaintext - display once only!
	TokenPrefix string    `json:"token_prefix"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
