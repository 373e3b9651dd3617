package store

import (
	"context"
	"fmt"

	"github.com/lyzr/catalog-ingest/common/config"
	"github.com/lyzr/catalog-ingest/common/logger"
)

// Open connects to the backend named by cfg.Store.Driver
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Backend, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg, log)
	case "sqlite":
		return OpenSQLite(cfg.Store.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}
