package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forkful/forkful/internal/model"
)

func sampleRecipe() *model.Recipe {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &model.Recipe{
		ID:          "r1",
		UserID:      "u1",
		Title:       "Bolo de Chocolate",
		TimeMinutes: 120,
		Price:       decimal.RequireFromString("18.00"),
		Tags: []model.Tag{
			{ID: "t1", Name: "Bolo", UserID: "u1"},
		},
		Ingredients: []model.Ingredient{
			{ID: "i1", Name: "Chocolate", UserID: "u1"},
			{ID: "i2", Name: "Farinha", UserID: "u1"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestToRecipeListItem_UsesIDs(t *testing.T) {
	item := ToRecipeListItem(sampleRecipe())

	if len(item.TagIDs) != 1 || item.TagIDs[0] != "t1" {
		t.Errorf("expected tag ids [t1], got %v", item.TagIDs)
	}
	if len(item.IngredientIDs) != 2 || item.IngredientIDs[0] != "i1" {
		t.Errorf("expected ingredient ids [i1 i2], got %v", item.IngredientIDs)
	}
}

func TestToRecipeResponse_EmbedsRecords(t *testing.T) {
	resp := ToRecipeResponse(sampleRecipe())

	if len(resp.Tags) != 1 || resp.Tags[0].Name != "Bolo" {
		t.Errorf("expected embedded tag Bolo, got %v", resp.Tags)
	}
	if len(resp.Ingredients) != 2 || resp.Ingredients[1].Name != "Farinha" {
		t.Errorf("expected embedded ingredients, got %v", resp.Ingredients)
	}
}

func TestRecipePriceSerializesAsDecimalString(t *testing.T) {
	data, err := json.Marshal(ToRecipeListItem(sampleRecipe()))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Trailing zeros survive the round trip
	if !strings.Contains(string(data), `"price":"18.00"`) {
		t.Errorf("expected price serialized as \"18.00\", got %s", data)
	}
}

func TestCreateRecipeRequestAcceptsStringAndNumberPrice(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string_price", `{"title":"x","price":"12.50"}`, "12.5"},
		{"number_price", `{"title":"x","price":12.5}`, "12.5"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var req CreateRecipeRequest
			if err := json.Unmarshal([]byte(test.body), &req); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if req.Price.String() != test.want {
				t.Errorf("expected price %s, got %s", test.want, req.Price.String())
			}
		})
	}
}
