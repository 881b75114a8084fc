package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bimakw/facilitator-indexer/internal/testutil"
)

func doHealth(t *testing.T, handler *HealthHandler) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec, response
}

func TestHealthHandler_Health_AllHealthy(t *testing.T) {
	handler := NewHealthHandler(
		testutil.NewMockHealthChecker(true),
		WithOptionalCheck("cache", testutil.NewMockHealthChecker(true)),
	)

	rec, response := doHealth(t, handler)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if response.Status != "healthy" {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
	if response.Services["database"] != "healthy" || response.Services["cache"] != "healthy" {
		t.Errorf("unexpected services: %v", response.Services)
	}
	if response.Timestamp == "" || response.Uptime == "" {
		t.Error("expected timestamp and uptime to be set")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
}

func TestHealthHandler_Health_DatabaseUnhealthy(t *testing.T) {
	handler := NewHealthHandler(
		testutil.NewMockHealthChecker(false),
		WithOptionalCheck("cache", testutil.NewMockHealthChecker(true)),
	)

	rec, response := doHealth(t, handler)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	if response.Status != "unhealthy" {
		t.Errorf("expected status unhealthy, got %s", response.Status)
	}
}

func TestHealthHandler_Health_OptionalUnhealthy(t *testing.T) {
	handler := NewHealthHandler(
		testutil.NewMockHealthChecker(true),
		WithOptionalCheck("redis", testutil.NewMockHealthChecker(false)),
	)

	rec, response := doHealth(t, handler)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if response.Status != "degraded" {
		t.Errorf("expected status degraded, got %s", response.Status)
	}
	if response.Services["redis"] == "healthy" {
		t.Error("expected redis to be unhealthy")
	}
}

func TestHealthHandler_Health_NilOptionalIgnored(t *testing.T) {
	handler := NewHealthHandler(testutil.NewMockHealthChecker(true), WithOptionalCheck("cache", nil))

	_, response := doHealth(t, handler)

	if _, exists := response.Services["cache"]; exists {
		t.Error("cache should not be reported when nil")
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name     string
		db       bool
		optional bool
		want     int
	}{
		{name: "healthy", db: true, optional: true, want: http.StatusOK},
		{name: "optional down is still ready", db: true, optional: false, want: http.StatusOK},
		{name: "database down", db: false, optional: true, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(
				testutil.NewMockHealthChecker(tt.db),
				WithOptionalCheck("cache", testutil.NewMockHealthChecker(tt.optional)),
			)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rec := httptest.NewRecorder()
			handler.Ready(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHealthHandler_Live_AlwaysAlive(t *testing.T) {
	handler := NewHealthHandler(testutil.NewMockHealthChecker(false))

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	rec := httptest.NewRecorder()

	handler.Live(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "alive" {
		t.Errorf("expected body 'alive', got '%s'", rec.Body.String())
	}
}
