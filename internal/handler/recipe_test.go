package handler

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/forkful/forkful/internal/service"
)

func TestSplitIDList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "t1", []string{"t1"}},
		{"multiple", "t1,t2,t3", []string{"t1", "t2", "t3"}},
		{"spaces", " t1 , t2 ", []string{"t1", "t2"}},
		{"blank_segments", "t1,,t2,", []string{"t1", "t2"}},
		{"only_commas", ",,,", []string{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := splitIDList(test.raw)
			if len(got) == 0 && len(test.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("splitIDList(%q) = %v, want %v", test.raw, got, test.want)
			}
		})
	}
}

func TestRecipeHandler_Unauthenticated(t *testing.T) {
	h := NewRecipeHandler(service.NewRecipeService(nil, nil), nil, nil, testLogger())

	tests := []struct {
		name    string
		method  string
		target  string
		handler http.HandlerFunc
	}{
		{"list", http.MethodGet, "/api/v1/recipes", h.List},
		{"create", http.MethodPost, "/api/v1/recipes", h.Create},
		{"get", http.MethodGet, "/api/v1/recipes/r1", h.Get},
		{"update", http.MethodPatch, "/api/v1/recipes/r1", h.Update},
		{"delete", http.MethodDelete, "/api/v1/recipes/r1", h.Delete},
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

func TestRecipeHandler_CreateInvalidJSON(t *testing.T) {
	h := NewRecipeHandler(service.NewRecipeService(nil, nil), nil, nil, testLogger())

	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/recipes", strings.NewReader("{")), "u1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"INVALID_JSON"`) {
		t.Errorf("expected INVALID_JSON code, got %s", rec.Body.String())
	}
}

func TestRecipeHandler_CreateRejectsNonNumericPrice(t *testing.T) {
	h := NewRecipeHandler(service.NewRecipeService(nil, nil), nil, nil, testLogger())

	body := `{"title":"Feijoada","price":"a lot"}`
	req := withAuth(httptest.NewRequest(http.MethodPost, "/api/v1/recipes", strings.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
