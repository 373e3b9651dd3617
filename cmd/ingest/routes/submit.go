package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/lyzr/catalog-ingest/cmd/ingest/container"
	"github.com/lyzr/catalog-ingest/cmd/ingest/handlers"
	"github.com/lyzr/catalog-ingest/cmd/ingest/middleware"
	commonmw "github.com/lyzr/catalog-ingest/common/middleware"
)

// RegisterSubmitRoutes registers the submission endpoint
func RegisterSubmitRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewSubmitHandler(c.Submitter, c.Policy, c.Components.Logger)

	var mw []echo.MiddlewareFunc
	if c.RateLimiter != nil {
		submit := c.Components.Config.Submit
		mw = append(mw, commonmw.UserRateLimitMiddleware(c.RateLimiter, middleware.GetUsername, submit.RateLimit, submit.RateWindow))
	}

	// Any method reaches the handler, which answers 405 for all but POST.
	e.Any("/submit", h.Submit, mw...) // POST /submit
}

// RegisterHealthRoutes registers the unauthenticated health check
func RegisterHealthRoutes(e *echo.Echo, c *container.Container) {
	checks := map[string]handlers.Pinger{
		"store": c.Components.Store,
	}
	if c.Components.Redis != nil {
		checks["redis"] = c.Components.Redis
	}

	h := handlers.NewHealthHandler(c.Components.Config.Service.Name, checks)
	e.GET("/health", h.Health) // GET /health
}
