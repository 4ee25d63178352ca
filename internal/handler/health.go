package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker reports whether one backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checks []dependencyCheck
}

type dependencyCheck struct {
	name    string
	checker HealthChecker
}

// NewHealthHandler creates a HealthHandler over the two backing
// services. Pass nil for a dependency that is not yet initialized.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		checks: []dependencyCheck{
			{name: "postgres", checker: db},
			{name: "redis", checker: cache},
		},
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness probe. It answers 200 whenever the process
// serves requests; dependencies are deliberately not consulted.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is the readiness probe. Postgres and Redis are both pinged;
// any failure turns the response into a 503 so the pod drops out of
// the load balancer.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status: "ok",
		Checks: make(map[string]string, len(h.checks)),
	}
	statusCode := http.StatusOK

	for _, dep := range h.checks {
		if dep.checker == nil {
			response.Checks[dep.name] = "not configured"
			continue
		}
		if err := dep.checker.Ping(ctx); err != nil {
			response.Checks[dep.name] = "error: " + err.Error()
			response.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		response.Checks[dep.name] = "ok"
	}

	writeJSON(w, statusCode, response)
}
