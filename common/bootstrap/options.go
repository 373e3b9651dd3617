package bootstrap

import (
	"github.com/lyzr/catalog-ingest/common/config"
	"github.com/lyzr/catalog-ingest/common/logger"
	"github.com/lyzr/catalog-ingest/common/store"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipStore     bool
	skipRedis     bool
	configFile    string
	customLogger  *logger.Logger
	customConfig  *config.Config
	storeInitHook func(store.Backend) error
}

// WithoutStore skips store initialization
func WithoutStore() Option {
	return func(o *options) {
		o.skipStore = true
	}
}

// WithoutRedis skips redis initialization even when enabled in config
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
	}
}

// WithConfigFile loads the YAML file at path before applying the environment
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithStoreInitHook runs a custom function after the store is opened
// and migrated.
func WithStoreInitHook(hook func(store.Backend) error) Option {
	return func(o *options) {
		o.storeInitHook = hook
	}
}

func defaultOptions() *options {
	return &options{}
}
