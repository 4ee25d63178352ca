package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebhookHandler_Unauthenticated(t *testing.T) {
	h := NewWebhookHandler(nil, nil, testLogger(), false)

	tests := []struct {
		name    string
		method  string
		target  string
		handler http.HandlerFunc
	}{
		{"list", http.MethodGet, "/api/v1/webhooks", h.List},
		{"create", http.MethodPost, "/api/v1/webhooks", h.Create},
		{"get", http.MethodGet, "/api/v1/webhooks/w1", h.Get},
		{"update", http.MethodPatch, "/api/v1/webhooks/w1", h.Update},
		{"delete", http.MethodDelete, "/api/v1/webhooks/w1", h.Delete},
		{"rotate_secret", http.MethodPost, "/api/v1/webhooks/w1/rotate-secret", h.RotateSecret},
		{"list_deliveries", http.MethodGet, "/api/v1/webhooks/w1/deliveries", h.ListDeliveries},
		{"retry_delivery", http.MethodPost, "/api/v1/webhooks/w1/deliveries/d1/retry", h.RetryDelivery},
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

func TestWebhookHandler_CreateInvalidJSON(t *testing.T) {
	h := NewWebhookHandler(nil, nil, testLogger(), false)

	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/webhooks", strings.NewReader("{")), "u1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"INVALID_JSON"`) {
		t.Errorf("expected INVALID_JSON code, got %s", rec.Body.String())
	}
}

func TestWebhookHandler_CreateValidation(t *testing.T) {
	h := NewWebhookHandler(nil, nil, testLogger(), false)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			"missing_target_url",
			`{"event_types":["recipe.created"]}`,
			"VALIDATION_ERROR",
		},
		{
			"http_target_rejected",
			`{"target_url":"http://hooks.example.com/recipes","event_types":["recipe.created"]}`,
			"INVALID_URL",
		},
		{
			"localhost_rejected",
			`{"target_url":"https://localhost/recipes","event_types":["recipe.created"]}`,
			"INVALID_URL",
		},
		{
			"missing_event_types",
			`{"target_url":"https://hooks.example.com/recipes"}`,
			"VALIDATION_ERROR",
		},
		{
			"unknown_event_type",
			`{"target_url":"https://hooks.example.com/recipes","event_types":["recipe.cloned"]}`,
			"INVALID_EVENT_TYPE",
		},
		{
			"name_too_long",
			`{"target_url":"https://hooks.example.com/recipes","event_types":["recipe.created"],"name":"` + strings.Repeat("x", 101) + `"}`,
			"VALIDATION_ERROR",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/webhooks", strings.NewReader(test.body)), "u1")
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `"code":"`+test.wantCode+`"`) {
				t.Errorf("expected %s code, got %s", test.wantCode, rec.Body.String())
			}
		})
	}
}

func TestWebhookHandler_InsecureTargetOverride(t *testing.T) {
	h := NewWebhookHandler(nil, nil, testLogger(), true)

	rec := httptest.NewRecorder()
	if !h.validateTarget(rec, "http://localhost:9999/hook") {
		t.Errorf("expected insecure target to pass with override, got %s", rec.Body.String())
	}
}

func TestWebhookHandler_GetMissingID(t *testing.T) {
	h := NewWebhookHandler(nil, nil, testLogger(), false)

	req := withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/", nil), "u1")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"MISSING_ID"`) {
		t.Errorf("expected MISSING_ID code, got %s", rec.Body.String())
	}
}
