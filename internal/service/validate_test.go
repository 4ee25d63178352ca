package service

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCatalogName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		wantField string
	}{
		{"empty", "", "", "name"},
		{"whitespace_only", "   ", "", "name"},
		{"too_long", strings.Repeat("a", 256), "", "name"},
		{"trimmed", "  Dinner  ", "Dinner", ""},
		{"max_length", strings.Repeat("a", 255), strings.Repeat("a", 255), ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := validateCatalogName(test.input)
			assertFieldError(t, err, test.wantField)
			if test.wantField == "" && got != test.want {
				t.Fatalf("expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		wantField string
	}{
		{"empty", "", "", "email"},
		{"no_at", "not-an-email", "", "email"},
		{"display_name", "Bob <bob@example.com>", "", "email"},
		{"too_long", strings.Repeat("a", 250) + "@example.com", "", "email"},
		{"lowercased", "USER@Example.COM", "user@example.com", ""},
		{"valid", "user@example.com", "user@example.com", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := validateEmail(test.input)
			assertFieldError(t, err, test.wantField)
			if test.wantField == "" && got != test.want {
				t.Fatalf("expected %q, got %q", test.want, got)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantField string
	}{
		{"too_short", "1234", "password"},
		{"too_long", strings.Repeat("p", 129), "password"},
		{"min_length", "12345", ""},
		{"max_length", strings.Repeat("p", 128), ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assertFieldError(t, validatePassword(test.input), test.wantField)
		})
	}
}

func TestValidateUserName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		wantField string
	}{
		{"blank_allowed", "", "", ""},
		{"trimmed", "  Maria  ", "Maria", ""},
		{"too_long", strings.Repeat("n", 256), "", "name"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := validateUserName(test.input)
			assertFieldError(t, err, test.wantField)
			if test.wantField == "" && got != test.want {
				t.Fatalf("expected %q, got %q", test.want, got)
			}
		})
	}
}

// assertFieldError fails unless err is a ValidationError for wantField.
// An empty wantField asserts success instead.
func assertFieldError(t *testing.T, err error, wantField string) {
	t.Helper()

	if wantField == "" {
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error on %q, got %v", wantField, err)
	}
	if vErr.Field != wantField {
		t.Fatalf("expected field %q, got %q", wantField, vErr.Field)
	}
}
