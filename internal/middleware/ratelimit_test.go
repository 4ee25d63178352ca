package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/cache"
	"github.com/forkful/forkful/internal/model"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xRealIP    string
		remoteAddr string
		want       string
	}{
		{
			name:       "x_forwarded_for_single",
			xff:        "203.0.113.5",
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.5",
		},
		{
			name:       "x_forwarded_for_chain_uses_first",
			xff:        "203.0.113.5, 70.41.3.18, 150.172.238.178",
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.5",
		},
		{
			name:       "x_real_ip",
			xRealIP:    "203.0.113.9",
			remoteAddr: "10.0.0.1:1234",
			want:       "203.0.113.9",
		},
		{
			name:       "remote_addr_fallback",
			remoteAddr: "192.0.2.44:5678",
			want:       "192.0.2.44",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = test.remoteAddr
			if test.xff != "" {
				req.Header.Set("X-Forwarded-For", test.xff)
			}
			if test.xRealIP != "" {
				req.Header.Set("X-Real-IP", test.xRealIP)
			}

			if got := getClientIP(req); got != test.want {
				t.Errorf("getClientIP() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestSetRateLimitHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	resetAt := time.Unix(1700000000, 0)
	setRateLimitHeaders(rec, 60, 42, resetAt)

	if got := rec.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("expected limit header 60, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "42" {
		t.Errorf("expected remaining header 42, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "1700000000" {
		t.Errorf("expected reset header 1700000000, got %q", got)
	}
}

func TestSetRateLimitHeaders_ZeroLimitOmitsHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	setRateLimitHeaders(rec, 0, 0, time.Now())

	if got := rec.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Errorf("expected no limit header, got %q", got)
	}
}

func TestWriteRateLimitError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeRateLimitError(rec, 30*time.Second)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("expected Retry-After 30, got %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"code":"RATE_LIMITED"`) {
		t.Errorf("expected RATE_LIMITED code in body, got %s", rec.Body.String())
	}
}

func TestRateLimitAPI_Disabled(t *testing.T) {
	cfg := RateLimitConfig{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		APIEnabled: false,
	}

	handler := RateLimitAPI(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recipes", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 when disabled, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "" {
		t.Errorf("expected no rate limit headers when disabled, got %q", got)
	}
}

func TestRateLimitAPI_ExhaustsBurst(t *testing.T) {
	c := newRateLimitTestCache(t)

	cfg := RateLimitConfig{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cache:      c,
		APIEnabled: true,
		APIRPM:     1,
		APIBurst:   2,
	}

	handler := RateLimitAPI(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	authCtx := &model.AuthContext{TokenID: "tok1", UserID: "u1"}

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/recipes", nil)
		req = req.WithContext(auth.ContextWithAuth(req.Context(), authCtx))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, rec.Code)
		}
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 after burst, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got == "" || got == "0" {
		t.Errorf("expected positive Retry-After, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Errorf("expected limit header 1, got %q", got)
	}
}

func TestRateLimitAPI_NoAuthContextPassesThrough(t *testing.T) {
	c := newRateLimitTestCache(t)

	cfg := RateLimitConfig{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cache:      c,
		APIEnabled: true,
		APIRPM:     1,
		APIBurst:   1,
	}

	handler := RateLimitAPI(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Unauthenticated requests are limited elsewhere
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimitLogin_LimitsPerIP(t *testing.T) {
	c := newRateLimitTestCache(t)

	cfg := RateLimitConfig{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cache:        c,
		LoginEnabled: true,
		LoginRPM:     1,
		LoginBurst:   1,
	}

	handler := RateLimitLogin(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/token", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("203.0.113.5"); rec.Code != http.StatusOK {
		t.Fatalf("first attempt: expected status 200, got %d", rec.Code)
	}
	if rec := send("203.0.113.5"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second attempt: expected status 429, got %d", rec.Code)
	}

	// A different address gets its own bucket
	if rec := send("203.0.113.6"); rec.Code != http.StatusOK {
		t.Errorf("other address: expected status 200, got %d", rec.Code)
	}
}

func newRateLimitTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	c, err := cache.New(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("cache.New failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return c
}
