// Package model defines domain entities for the application.
package model

import "time"

// Ingredient is a pantry item a user cooks with ("Salt", "Kale").
// Like tags, ingredients are private to their owner; two users holding
// an ingredient with the same name hold two unrelated records.
type Ingredient struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
