// Package contract checks the HTTP surface of a running server against
// the OpenAPI document in docs/api. Document-only tests always run;
// live probes target API_BASE_URL (default http://localhost:8080) and
// skip when nothing is listening, so the package stays safe in a plain
// `go test ./...`.
package contract

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

var client = &http.Client{Timeout: 10 * time.Second}

func baseURL() string {
	if u := os.Getenv("API_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

// authToken returns the token for authenticated probes, skipping the
// test when TEST_TOKEN is not set.
func authToken(t *testing.T) string {
	t.Helper()
	token := os.Getenv("TEST_TOKEN")
	if token == "" {
		t.Skip("TEST_TOKEN not set")
	}
	return token
}

// loadDocument parses and validates the OpenAPI document. The location
// can be overridden with OPENAPI_SPEC_PATH when running from outside
// the package directory.
func loadDocument(t *testing.T) *openapi3.T {
	t.Helper()

	path := os.Getenv("OPENAPI_SPEC_PATH")
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("getwd: %v", err)
		}
		path = filepath.Join(wd, "..", "..", "docs", "api", "openapi.yaml")
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("document does not validate: %v", err)
	}
	return doc
}

// fetch issues a request against the live server, skipping the test
// when the server is unreachable. A non-empty token is sent using the
// Token scheme.
func fetch(t *testing.T, method, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, baseURL()+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Skipf("no server at %s: %v", baseURL(), err)
	}
	return resp
}

func TestDocumentValidates(t *testing.T) {
	doc := loadDocument(t)

	if got, want := doc.Info.Title, "Forkful API"; got != want {
		t.Errorf("title = %q, want %q", got, want)
	}
	if doc.Info.Version == "" {
		t.Error("document has no version")
	}
}

// TestDocumentCoversRoutes pins the documented path set to the routes
// the server mounts. A route added in code without a document entry
// fails here, with no server required.
func TestDocumentCoversRoutes(t *testing.T) {
	doc := loadDocument(t)

	served := []string{
		"/",
		"/healthz",
		"/readyz",
		"/metrics",
		"/api/v1/users",
		"/api/v1/users/token",
		"/api/v1/users/me",
		"/api/v1/users/tokens",
		"/api/v1/users/tokens/{id}",
		"/api/v1/tags",
		"/api/v1/tags/{id}",
		"/api/v1/ingredients",
		"/api/v1/ingredients/{id}",
		"/api/v1/recipes",
		"/api/v1/recipes/{id}",
		"/api/v1/webhooks",
		"/api/v1/webhooks/{id}",
		"/api/v1/webhooks/{id}/rotate-secret",
		"/api/v1/webhooks/{id}/deliveries",
		"/api/v1/webhooks/{id}/deliveries/{deliveryID}/retry",
		"/api/v1/admin/users",
		"/api/v1/admin/users/{id}",
		"/api/v1/admin/audit",
	}

	for _, path := range served {
		item := doc.Paths.Find(path)
		if item == nil {
			t.Errorf("path %s not documented", path)
			continue
		}
		if len(item.Operations()) == 0 {
			t.Errorf("path %s documented without operations", path)
		}
	}
}

// TestPublicEndpoints probes the endpoints that need no credentials.
func TestPublicEndpoints(t *testing.T) {
	cases := []struct {
		path     string
		wantJSON bool
	}{
		{"/", true},
		{"/healthz", true},
		{"/readyz", true},
		{"/metrics", false},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp := fetch(t, http.MethodGet, tc.path, "")
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				t.Fatalf("GET %s returned 404", tc.path)
			}
			if tc.wantJSON {
				if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
					t.Errorf("GET %s Content-Type = %q, want application/json", tc.path, ct)
				}
			}
		})
	}
}

// TestErrorEnvelope checks that failures come back with the documented
// status and {error, code} envelope.
func TestErrorEnvelope(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		path       string
		needsAuth  bool
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing credentials",
			method:     http.MethodGet,
			path:       "/api/v1/recipes",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/nonexistent",
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "unknown recipe",
			method:     http.MethodGet,
			path:       "/api/v1/recipes/01ARZ3NDEKTSV4RRFFQ69G5FAV",
			needsAuth:  true,
			wantStatus: http.StatusNotFound,
			wantCode:   "RECIPE_NOT_FOUND",
		},
		{
			name:       "unknown token id",
			method:     http.MethodDelete,
			path:       "/api/v1/users/tokens/01ARZ3NDEKTSV4RRFFQ69G5FAV",
			needsAuth:  true,
			wantStatus: http.StatusNotFound,
			wantCode:   "TOKEN_NOT_FOUND",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := ""
			if tc.needsAuth {
				token = authToken(t)
			}

			resp := fetch(t, tc.method, tc.path, token)
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			assertErrorEnvelope(t, resp, tc.wantCode)
		})
	}
}

// assertErrorEnvelope reads the response body and checks it is the
// standard error shape carrying the expected code.
func assertErrorEnvelope(t *testing.T, resp *http.Response, wantCode string) {
	t.Helper()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("error Content-Type = %q, want application/json", ct)
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var envelope struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("error body is not JSON: %v\nbody: %s", err, body)
	}

	if envelope.Error == "" {
		t.Errorf("error field empty, body: %s", body)
	}
	if envelope.Code != wantCode {
		t.Errorf("code = %q, want %q", envelope.Code, wantCode)
	}
}

// TestHealthzMatchesDocument validates a live health response against
// the documented schema.
func TestHealthzMatchesDocument(t *testing.T) {
	doc := loadDocument(t)
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	req, err := http.NewRequest(http.MethodGet, baseURL()+"/healthz", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Skipf("no server at %s: %v", baseURL(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	route, pathParams, err := router.FindRoute(req)
	if err != nil {
		t.Fatalf("no documented route for /healthz: %v", err)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   io.NopCloser(strings.NewReader(string(body))),
	}
	if err := openapi3filter.ValidateResponse(context.Background(), input); err != nil {
		t.Errorf("response does not match document: %v", err)
	}
}

// TestRootIdentity checks the service info endpoint names the service.
func TestRootIdentity(t *testing.T) {
	resp := fetch(t, http.MethodGet, "/", "")
	defer resp.Body.Close()

	var info struct {
		Service string `json:"service"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode root response: %v", err)
	}

	if got, want := info.Service, "forkful"; got != want {
		t.Errorf("service = %q, want %q", got, want)
	}
	if info.Version == "" {
		t.Error("version missing from root response")
	}
}
