// Package model defines domain entities for the application.
package model

import "time"

// Tag labels recipes for coarse grouping ("Vegan", "Dessert").
// A tag belongs to exactly one user and is never shared.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
