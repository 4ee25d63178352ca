// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/forkful/forkful/internal/model"
)

// RegisterRequest represents the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// LoginRequest represents the request body for token issuance.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// TokenName optionally labels the issued token ("cli", "mobile").
	TokenName string `json:"token_name,omitempty"`
}

// UpdateMeRequest represents a partial self-profile update.
type UpdateMeRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// TokenListResponse wraps the caller's token records (no secrets).
type TokenListResponse struct {
	Tokens []model.AuthTokenResponse `json:"tokens"`
}

// AdminCreateUserRequest represents the admin "add user" body.
type AdminCreateUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name,omitempty"`
	IsStaff     bool   `json:"is_staff,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
}

// AdminUpdateUserRequest represents a partial admin edit of an account.
type AdminUpdateUserRequest struct {
	Name        *string `json:"name,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	IsStaff     *bool   `json:"is_staff,omitempty"`
	IsSuperuser *bool   `json:"is_superuser,omitempty"`
}

// AdminUserResponse is the staff view of an account, flags included.
type AdminUserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserListResponse represents a cursor-paginated page of accounts.
type UserListResponse struct {
	Data       []AdminUserResponse `json:"data"`
	Pagination *Pagination         `json:"pagination"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ToAdminUserResponse converts a User to its staff view.
func ToAdminUserResponse(user *model.User) AdminUserResponse {
	return AdminUserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// ToUserListResponse converts a page of users to the list envelope.
func ToUserListResponse(users []*model.User, nextCursor string, hasMore bool) *UserListResponse {
	responses := make([]AdminUserResponse, len(users))
	for i, user := range users {
		responses[i] = ToAdminUserResponse(user)
	}
	return &UserListResponse{
		Data: responses,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}
