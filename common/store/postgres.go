package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lyzr/catalog-ingest/common/config"
	"github.com/lyzr/catalog-ingest/common/logger"
)

//go:embed schema/postgres.sql
var postgresSchema string

// Postgres runs statements on a pgx connection pool. Batches are sent as a
// single pipelined pgx.Batch, which the server applies as one implicit
// transaction.
type Postgres struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgres creates a new database connection pool
func NewPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connected", "driver", "postgres", "host", cfg.Database.Host, "db", cfg.Database.Database)

	return &Postgres{
		pool: pool,
		log:  log,
	}, nil
}

// Driver implements Backend
func (p *Postgres) Driver() string {
	return "postgres"
}

// Execute implements Store
func (p *Postgres) Execute(ctx context.Context, stmt Statement) (Result, error) {
	if stmt.Returning {
		var key int64
		err := p.pool.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(&key)
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, nil
		}
		if err != nil {
			return Result{}, err
		}
		return Result{Key: key, HasKey: true, RowsAffected: 1}, nil
	}

	tag, err := p.pool.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return Result{}, err
	}
	return Result{RowsAffected: tag.RowsAffected()}, nil
}

// Batch implements Store
func (p *Postgres) Batch(ctx context.Context, stmts []Statement) ([]Result, error) {
	if len(stmts) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, stmt := range stmts {
		batch.Queue(stmt.SQL, stmt.Args...)
	}

	br := p.pool.SendBatch(ctx, batch)

	results := make([]Result, len(stmts))
	for i, stmt := range stmts {
		if stmt.Returning {
			var key int64
			err := br.QueryRow().Scan(&key)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				continue
			case err != nil:
				br.Close()
				return nil, fmt.Errorf("batch statement %d: %w", i, err)
			}
			results[i] = Result{Key: key, HasKey: true, RowsAffected: 1}
			continue
		}

		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return nil, fmt.Errorf("batch statement %d: %w", i, err)
		}
		results[i] = Result{RowsAffected: tag.RowsAffected()}
	}

	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}

	return results, nil
}

// Migrate implements Backend
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply postgres schema: %w", err)
	}
	p.log.Info("schema applied", "driver", "postgres")
	return nil
}

// Health checks database health
func (p *Postgres) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.pool.Ping(ctx)
}

// Close closes the database connection pool
func (p *Postgres) Close() error {
	p.log.Info("closing database connection pool")
	p.pool.Close()
	return nil
}
