package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forkful/forkful/internal/service"
)

func TestPresentedToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		want       string
	}{
		{"token_scheme", "Token rcp_a1b2c3_0123456789abcdef0123456789abcdef", "rcp_a1b2c3_0123456789abcdef0123456789abcdef"},
		{"bearer_scheme", "Bearer rcp_a1b2c3_0123456789abcdef0123456789abcdef", "rcp_a1b2c3_0123456789abcdef0123456789abcdef"},
		{"basic_scheme", "Basic dXNlcjpwYXNz", ""},
		{"no_header", "", ""},
		{"bare_token", "rcp_a1b2c3_0123456789abcdef0123456789abcdef", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if test.authHeader != "" {
				req.Header.Set("Authorization", test.authHeader)
			}

			if got := presentedToken(req); got != test.want {
				t.Errorf("presentedToken() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestUserHandler_Unauthenticated(t *testing.T) {
	h := NewUserHandler(service.NewUserService(nil, nil, nil), nil, testLogger())

	tests := []struct {
		name    string
		method  string
		target  string
		handler http.HandlerFunc
	}{
		{"me", http.MethodGet, "/api/v1/users/me", h.Me},
		{"update_me", http.MethodPatch, "/api/v1/users/me", h.UpdateMe},
		{"logout", http.MethodDelete, "/api/v1/users/token", h.Logout},
		{"list_tokens", http.MethodGet, "/api/v1/users/tokens", h.ListTokens},
		{"revoke_token", http.MethodDelete, "/api/v1/users/tokens/t1", h.RevokeToken},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(test.method, test.target, nil)
			rec := httptest.NewRecorder()
			test.handler(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
		})
	}
}

func TestUserHandler_RegisterInvalidJSON(t *testing.T) {
	h := NewUserHandler(service.NewUserService(nil, nil, nil), nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"INVALID_JSON"`) {
		t.Errorf("expected INVALID_JSON code, got %s", rec.Body.String())
	}
}

func TestUserHandler_RegisterValidationNamesField(t *testing.T) {
	h := NewUserHandler(service.NewUserService(nil, nil, nil), nil, testLogger())

	body := `{"email":"","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"email"`) {
		t.Errorf("expected the failing field in the body, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"code":"VALIDATION_ERROR"`) {
		t.Errorf("expected VALIDATION_ERROR code, got %s", rec.Body.String())
	}
}
