package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/catalog-ingest/common/config"
	"github.com/lyzr/catalog-ingest/common/logger"
	rediscommon "github.com/lyzr/catalog-ingest/common/redis"
	"github.com/lyzr/catalog-ingest/common/store"
)

// Setup initializes all service components
// This is the main entry point for every subcommand
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName, options.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize store (if not skipped)
	if !options.skipStore {
		components.Logger.Info("opening store", "driver", components.Config.Store.Driver)
		components.Store, err = store.Open(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing store")
			return components.Store.Close()
		})

		if components.Config.Store.Migrate {
			if err := components.Store.Migrate(ctx); err != nil {
				components.Shutdown(ctx) // Cleanup what we've initialized
				return nil, fmt.Errorf("failed to migrate store: %w", err)
			}
		}

		// Run store init hook if provided
		if options.storeInitHook != nil {
			components.Logger.Info("running store init hook")
			if err := options.storeInitHook(components.Store); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("store init hook failed: %w", err)
			}
		}
	}

	// 4. Initialize redis (if enabled and not skipped)
	if !options.skipRedis && components.Config.Redis.Enabled {
		components.Logger.Info("connecting to redis", "addr", components.Config.Redis.Addr)
		components.Redis, err = rediscommon.Dial(ctx, components.Config.Redis, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"store", components.Store != nil,
		"redis", components.Redis != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
