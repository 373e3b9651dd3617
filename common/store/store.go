package store

import (
	"context"
	"errors"
)

// ErrNoKey is returned when a statement prepared with PrepareReturning
// produced no row to read a generated key from.
var ErrNoKey = errors.New("statement did not return a generated key")

// Prepared is SQL text ready to be bound to values. The text uses $n
// placeholders numbered in order of first appearance, which both backends
// accept.
type Prepared struct {
	sql       string
	returning bool
}

// Prepare wraps a statement that returns no rows.
func Prepare(sql string) Prepared {
	return Prepared{sql: sql}
}

// PrepareReturning wraps a statement whose RETURNING clause yields a single
// integer column, usually a generated primary key.
func PrepareReturning(sql string) Prepared {
	return Prepared{sql: sql, returning: true}
}

// SQL returns the statement text
func (p Prepared) SQL() string {
	return p.sql
}

// Bind produces a statement ready to execute
func (p Prepared) Bind(args ...any) Statement {
	return Statement{
		SQL:       p.sql,
		Args:      args,
		Returning: p.returning,
	}
}

// Statement is a bound statement
type Statement struct {
	SQL       string
	Args      []any
	Returning bool
}

// Result is the outcome of one statement
type Result struct {
	// Key is the returned integer when HasKey is set
	Key    int64
	HasKey bool

	RowsAffected int64
}

// RequireKey returns the generated key or ErrNoKey
func (r Result) RequireKey() (int64, error) {
	if !r.HasKey {
		return 0, ErrNoKey
	}
	return r.Key, nil
}

// Store is the statement execution capability the ingestion pipeline
// consumes. It promises per-statement atomicity and ordered batch execution
// where a batch either applies fully or fails as a whole. It offers no
// transactions spanning multiple calls.
type Store interface {
	// Execute runs one statement.
	Execute(ctx context.Context, stmt Statement) (Result, error)

	// Batch runs statements together and returns their results in
	// submission order. An empty batch returns nil without touching the
	// database.
	Batch(ctx context.Context, stmts []Statement) ([]Result, error)
}

// Backend is a Store with lifecycle operations
type Backend interface {
	Store

	// Driver names the SQL dialect ("postgres" or "sqlite")
	Driver() string

	// Migrate applies the embedded schema. It is idempotent.
	Migrate(ctx context.Context) error

	Health(ctx context.Context) error
	Close() error
}
