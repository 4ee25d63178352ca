package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		inbound    string
		wantEchoed bool
	}{
		{"generates when absent", "", false},
		{"honors well-formed UUID", "2b8e7c3a-1f4d-4e5b-9c6a-8d7f0e1a2b3c", true},
		{"replaces arbitrary string", "my-custom-id", false},
		{"replaces injection attempt", `x" evil="y`, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ctxID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tags", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			headerID := rec.Header().Get(RequestIDHeader)
			if headerID == "" {
				t.Fatal("response is missing the request id header")
			}
			if headerID != ctxID {
				t.Errorf("header id %q does not match context id %q", headerID, ctxID)
			}

			if tt.wantEchoed {
				if headerID != tt.inbound {
					t.Errorf("request id = %q, want inbound %q echoed", headerID, tt.inbound)
				}
				return
			}

			if headerID == tt.inbound {
				t.Errorf("request id %q should have been replaced", headerID)
			}
			if _, err := uuid.Parse(headerID); err != nil {
				t.Errorf("generated request id %q is not a UUID: %v", headerID, err)
			}
		})
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID on bare context = %q, want empty", got)
	}
}
