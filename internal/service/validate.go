// Package service provides business logic for the application.
package service

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	maxNameLength     = 255
	minPasswordLength = 5
	maxPasswordLength = 128
)

// ValidationError reports a rejected input field.
// Handlers map it to a 400 response naming the field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// newValidationError builds a field error.
func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// validateCatalogName trims and checks a tag or ingredient name.
// Names are not unique per user; only emptiness and length are enforced.
func validateCatalogName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", newValidationError("name", "must not be blank")
	}
	if len(trimmed) > maxNameLength {
		return "", newValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return trimmed, nil
}

// validateEmail normalizes and checks an email address.
func validateEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", newValidationError("email", "must not be blank")
	}
	if len(normalized) > maxNameLength {
		return "", newValidationError("email", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", newValidationError("email", "must be a valid email address")
	}
	return normalized, nil
}

// validatePassword checks password length bounds.
// The value itself is never logged or stored in plaintext.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return newValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return newValidationError("password", fmt.Sprintf("must be at most %d characters", maxPasswordLength))
	}
	return nil
}

// validateUserName trims and checks a display name. Blank is allowed.
func validateUserName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) > maxNameLength {
		return "", newValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return trimmed, nil
}
