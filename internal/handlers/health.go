package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"coursetutor/internal/contextutil"
)

// HealthChecker reports whether a dependency is reachable. service.CourseIndex satisfies it.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckFunc adapts a plain function, such as (*sql.DB).PingContext, to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Health calls f.
func (f HealthCheckFunc) Health(ctx context.Context) error { return f(ctx) }

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	checks             map[string]HealthChecker
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a HealthHandler over the named dependency checks,
// e.g. "vector_store" and "database".
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{
		checks:             checks,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Result per dependency: "ok" or "error"
	Checks map[string]string `json:"checks"`

	// One "<dependency>_unavailable" entry per failed check
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK if every dependency is reachable, 503 Service Unavailable otherwise.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// Returns the health status of the vector store and the database.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: All dependencies are reachable
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: At least one dependency is unavailable
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string, len(h.checks)),
	}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := h.checks[name].Health(checkCtx); err != nil {
			logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			resp.Checks[name] = "error"
			resp.Issues = append(resp.Issues, name+"_unavailable")
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if len(resp.Issues) > 0 {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(ctx, w, status, resp)
}
