package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreateRecipeValidationErrors(t *testing.T) {
	svc := &RecipeService{}

	tests := []struct {
		name      string
		input     CreateRecipeInput
		wantField string
	}{
		{
			name:      "blank_title",
			input:     CreateRecipeInput{Title: "   "},
			wantField: "title",
		},
		{
			name:      "long_title",
			input:     CreateRecipeInput{Title: strings.Repeat("t", 256)},
			wantField: "title",
		},
		{
			name:      "negative_time",
			input:     CreateRecipeInput{Title: "Feijoada", TimeMinutes: -5},
			wantField: "time_minutes",
		},
		{
			name:      "negative_price",
			input:     CreateRecipeInput{Title: "Feijoada", Price: decimal.New(-500, -2)},
			wantField: "price",
		},
		{
			name:      "sub_cent_price",
			input:     CreateRecipeInput{Title: "Feijoada", Price: decimal.New(9999, -3)},
			wantField: "price",
		},
		{
			name: "long_link",
			input: CreateRecipeInput{
				Title: "Feijoada",
				Link:  "https://example.com/" + strings.Repeat("a", 256),
			},
			wantField: "link",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.CreateRecipe(context.Background(), test.input)
			assertFieldError(t, err, test.wantField)
		})
	}
}

func TestListRecipesMatchValidation(t *testing.T) {
	svc := &RecipeService{}

	_, err := svc.ListRecipes(context.Background(), ListRecipesInput{
		UserID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		TagIDs: []string{"01BX5ZZKBKACTAV9WEVGEMMVRZ"},
		Match:  "some",
	})
	assertFieldError(t, err, "match")
}
