package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/lyzr/catalog-ingest/cmd/ingest/container"
	"github.com/lyzr/catalog-ingest/cmd/ingest/handlers"
	"github.com/lyzr/catalog-ingest/cmd/ingest/middleware"
	"github.com/lyzr/catalog-ingest/cmd/ingest/routes"
	"github.com/lyzr/catalog-ingest/common/bootstrap"
	"github.com/lyzr/catalog-ingest/common/logger"
	"github.com/lyzr/catalog-ingest/common/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the submission endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	// Bootstrap common components (store, logger, redis)
	components, err := bootstrap.Setup(ctx, serviceName, bootstrap.WithConfigFile(opts.configFile))
	if err != nil {
		return fmt.Errorf("failed to bootstrap %s: %w", serviceName, err)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		return fmt.Errorf("failed to initialize service container: %w", err)
	}

	e := newEcho(serviceContainer)

	srv := server.New(serviceName, components.Config.Service.Port, e, components.Logger)
	return srv.Start(ctx)
}

// newEcho builds the HTTP surface
func newEcho(c *container.Container) *echo.Echo {
	e := setupEcho(c.Components.Logger)
	setupMiddleware(e, c)
	registerRoutes(e, c)
	return e
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho(log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler(log)
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, c *container.Container) {
	log := c.Components.Logger

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(ec echo.Context, id string) {
			req := ec.Request()
			ec.SetRequest(req.WithContext(logger.ContextWithRequestID(req.Context(), id)))
		},
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(ec echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= 500 {
				level = slog.LevelWarn
			}
			log.LogAttrs(ec.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	auth := c.Components.Config.Auth
	e.Use(middleware.BasicAuth(
		middleware.Credentials{User: auth.User, Pass: auth.Pass},
		func(ec echo.Context) bool { return ec.Path() == "/health" },
		log,
	))
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, c *container.Container) {
	routes.RegisterHealthRoutes(e, c)
	routes.RegisterSubmitRoutes(e, c)
}
