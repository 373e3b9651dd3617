package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lyzr/catalog-ingest/common/logger"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// SQLite runs statements on a single-connection SQLite database. A batch runs
// inside one database/sql transaction, matching the all-or-nothing batch
// contract of hosted SQLite services.
type SQLite struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenSQLite opens (creating if needed) the database at path. Pass
// ":memory:" for a private in-memory database.
func OpenSQLite(path string, log *logger.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connected", "driver", "sqlite", "path", path)

	return &SQLite{db: db, log: log}, nil
}

// sqliteDSN carries the pragmas in the DSN so the driver applies them to
// every connection it opens.
func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// DB returns the underlying sql.DB for direct queries
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Driver implements Backend
func (s *SQLite) Driver() string {
	return "sqlite"
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func run(ctx context.Context, db execer, stmt Statement) (Result, error) {
	if stmt.Returning {
		var key int64
		err := db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&key)
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, nil
		}
		if err != nil {
			return Result{}, err
		}
		return Result{Key: key, HasKey: true, RowsAffected: 1}, nil
	}

	res, err := db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return Result{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, err
	}
	return Result{RowsAffected: affected}, nil
}

// Execute implements Store
func (s *SQLite) Execute(ctx context.Context, stmt Statement) (Result, error) {
	return run(ctx, s.db, stmt)
}

// Batch implements Store
func (s *SQLite) Batch(ctx context.Context, stmts []Statement) ([]Result, error) {
	if len(stmts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}

	results := make([]Result, len(stmts))
	for i, stmt := range stmts {
		res, err := run(ctx, tx, stmt)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("batch statement %d: %w", i, err)
		}
		results[i] = res
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return results, nil
}

// Migrate implements Backend
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	s.log.Info("schema applied", "driver", "sqlite")
	return nil
}

// Health implements Backend
func (s *SQLite) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
