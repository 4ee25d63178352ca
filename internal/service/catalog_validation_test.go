package service

import (
	"context"
	"strings"
	"testing"
)

func TestCreateTagValidationErrors(t *testing.T) {
	svc := &TagService{}

	tests := []struct {
		name      string
		tagName   string
		wantField string
	}{
		{"blank", "", "name"},
		{"whitespace_only", "  ", "name"},
		{"too_long", strings.Repeat("a", 256), "name"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.CreateTag(context.Background(), CreateTagInput{
				UserID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
				Name:   test.tagName,
			})
			assertFieldError(t, err, test.wantField)
		})
	}
}

func TestCreateIngredientValidationErrors(t *testing.T) {
	svc := &IngredientService{}

	tests := []struct {
		name           string
		ingredientName string
		wantField      string
	}{
		{"blank", "", "name"},
		{"whitespace_only", "  ", "name"},
		{"too_long", strings.Repeat("a", 256), "name"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.CreateIngredient(context.Background(), CreateIngredientInput{
				UserID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
				Name:   test.ingredientName,
			})
			assertFieldError(t, err, test.wantField)
		})
	}
}
