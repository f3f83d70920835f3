package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"mailprofiler/core/service/pipeline"
)

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	result  *pipeline.RunResult
	cache   Pinger
	started time.Time
}

// NewHealthHandler creates a health handler over the completed run. cache is
// nil when lookups run against the in-process cache.
func NewHealthHandler(result *pipeline.RunResult, cache Pinger) *HealthHandler {
	return &HealthHandler{
		result:  result,
		cache:   cache,
		started: time.Now(),
	}
}

// Register registers health routes.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

// Health reports liveness plus a one-line run summary.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}
	if h.result != nil {
		body["run_id"] = h.result.RunID
		body["profiles"] = len(h.result.Profiles)
	}
	return c.JSON(body)
}

// Ready reports whether the server can answer result queries.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = "unhealthy: " + err.Error()
			ready = false
		} else {
			checks["cache"] = "healthy"
		}
	} else {
		checks["cache"] = "not configured"
	}

	if h.result != nil {
		checks["run"] = "loaded"
	} else {
		checks["run"] = "no completed run"
		ready = false
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !ready {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}
