package handler

import (
	"context"
	"net/http"
	"time"
)

// readyTimeout bounds all dependency checks of one readiness probe.
const readyTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependency is a named readiness check. A nil Checker means the
// dependency is optional and not configured.
type Dependency struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	deps []Dependency
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. It never checks dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if every configured dependency answers.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true

	for _, dep := range h.deps {
		if dep.Checker == nil {
			checks[dep.Name] = "not configured"
			continue
		}
		if err := dep.Checker.Ping(ctx); err != nil {
			checks[dep.Name] = "error: " + err.Error()
			healthy = false
			continue
		}
		checks[dep.Name] = "ok"
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{Status: status, Checks: checks})
}
