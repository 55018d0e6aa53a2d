package validation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dreschagin/analytics-validator/internal/domain/valueobject"
)

func newTestHandler(t *testing.T) (*Handler, *Runner) {
	t.Helper()
	runner, engine := newTestRunner(t)
	return NewHandler(engine, runner), runner
}

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerHealthz(t *testing.T) {
	handler, _ := newTestHandler(t)
	routes := handler.Routes()

	rec := doRequest(t, routes, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestHandlerReadyz(t *testing.T) {
	handler, runner := newTestHandler(t)
	routes := handler.Routes()

	rec := doRequest(t, routes, http.MethodGet, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first cycle, got %d", rec.Code)
	}

	runner.RunOnce(context.Background())

	rec = doRequest(t, routes, http.MethodGet, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after a cycle, got %d", rec.Code)
	}
}

func TestHandlerSummary(t *testing.T) {
	handler, runner := newTestHandler(t)
	routes := handler.Routes()
	runner.RunOnce(context.Background())

	rec := doRequest(t, routes, http.MethodGet, "/api/v1/validation/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var summary Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if !summary.Initialized {
		t.Error("expected initialized engine in summary")
	}
	if summary.TotalValidations != 1 {
		t.Errorf("expected 1 validation, got %d", summary.TotalValidations)
	}
}

func TestHandlerLatest(t *testing.T) {
	handler, runner := newTestHandler(t)
	routes := handler.Routes()

	rec := doRequest(t, routes, http.MethodGet, "/api/v1/validation/latest")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first cycle, got %d", rec.Code)
	}

	runner.RunOnce(context.Background())

	rec = doRequest(t, routes, http.MethodGet, "/api/v1/validation/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after a cycle, got %d", rec.Code)
	}

	var result CycleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.ID == "" {
		t.Error("expected populated cycle id")
	}
	if len(result.Checks) != 6 {
		t.Errorf("expected 6 checks, got %d", len(result.Checks))
	}
}

func TestHandlerHistory(t *testing.T) {
	handler, runner := newTestHandler(t)
	routes := handler.Routes()
	runner.RunOnce(context.Background())
	runner.RunOnce(context.Background())

	rec := doRequest(t, routes, http.MethodGet, "/api/v1/validation/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var results []CycleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(results))
	}
}

func TestHandlerRunNow(t *testing.T) {
	handler, _ := newTestHandler(t)
	routes := handler.Routes()

	rec := doRequest(t, routes, http.MethodPost, "/api/v1/validation/run")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result CycleResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.Status != valueobject.StatusPassed {
		t.Errorf("expected passed status for healthy sources, got %s", result.Status)
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)
	routes := handler.Routes()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/healthz"},
		{http.MethodPost, "/api/v1/validation/summary"},
		{http.MethodDelete, "/api/v1/validation/latest"},
		{http.MethodGet, "/api/v1/validation/run"},
	}

	for _, tc := range cases {
		rec := doRequest(t, routes, tc.method, tc.path)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tc.method, tc.path, rec.Code)
		}
	}
}
