// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchMode controls how multiple ids inside one recipe filter facet
// combine: "any" returns recipes carrying at least one of the ids,
// "all" only recipes carrying every id.
type MatchMode string

const (
	MatchAny MatchMode = "any"
	MatchAll MatchMode = "all"
)

// IsValid checks if the match mode is valid.
func (m MatchMode) IsValid() bool {
	return m == MatchAny || m == MatchAll
}

// Recipe is the central owned entity: a dish with a prep time, a cost
// and the tags/ingredients assigned to it. The assigned sets are loaded
// from join tables and always belong to the same user as the recipe.
type Recipe struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       decimal.Decimal `json:"price"`
	Link        string          `json:"link,omitempty"`
	Tags        []Tag           `json:"tags,omitempty"`
	Ingredients []Ingredient    `json:"ingredients,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TagIDs returns the ids of the assigned tags in load order.
func (r *Recipe) TagIDs() []string {
	ids := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// IngredientIDs returns the ids of the assigned ingredients in load order.
func (r *Recipe) IngredientIDs() []string {
	ids := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		ids = append(ids, ing.ID)
	}
	return ids
}
