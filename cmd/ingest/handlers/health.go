package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler reports service liveness
type HealthHandler struct {
	service string
	checks  map[string]Pinger
}

// NewHealthHandler creates a health handler over the named dependencies
func NewHealthHandler(service string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{service: service, checks: checks}
}

// Health pings every dependency
// GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	return c.JSON(status, map[string]interface{}{
		"status":       state,
		"service":      h.service,
		"dependencies": deps,
	})
}
