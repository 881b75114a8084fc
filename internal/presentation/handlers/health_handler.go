package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines the interface for health checking components
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type namedCheck struct {
	name     string
	checker  HealthChecker
	critical bool
}

// HealthHandler handles health check requests. The database is always
// critical; other dependencies only degrade the reported status.
type HealthHandler struct {
	checks    []namedCheck
	startedAt time.Time
}

// HealthOption adds a dependency to the health report
type HealthOption func(*HealthHandler)

// WithOptionalCheck reports a dependency whose failure degrades but does not
// fail the service. A nil checker is ignored.
func WithOptionalCheck(name string, checker HealthChecker) HealthOption {
	return func(h *HealthHandler) {
		if checker != nil {
			h.checks = append(h.checks, namedCheck{name: name, checker: checker})
		}
	}
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		checks:    []namedCheck{{name: "database", checker: db, critical: true}},
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Services  map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startedAt).Truncate(time.Second).String(),
		Services:  make(map[string]string, len(h.checks)),
	}

	for _, c := range h.checks {
		if err := c.checker.HealthCheck(ctx); err != nil {
			response.Services[c.name] = "unhealthy: " + err.Error()
			if c.critical {
				response.Status = "unhealthy"
			} else if response.Status == "healthy" {
				response.Status = "degraded"
			}
			continue
		}
		response.Services[c.name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, response)
}

// Ready handles GET /ready (Kubernetes readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range h.checks {
		if !c.critical {
			continue
		}
		if err := c.checker.HealthCheck(ctx); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Live handles GET /live (Kubernetes liveness probe)
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
