// Package storetest provides an in-memory store.Store that records every
// statement it receives.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lyzr/catalog-ingest/common/store"
)

// ErrInjected is returned by Fake when FailWhen matches a statement
var ErrInjected = errors.New("injected store failure")

// Call is one round trip to the store
type Call struct {
	Batch      bool
	Statements []store.Statement
}

// Fake hands out sequential keys for RETURNING statements. Statements with an
// ON CONFLICT clause get the same key for the same arguments, which mimics
// upsert-or-fetch. Inserts into artifact_versions return the next version of
// the artifact id in their first argument, starting at 1. A matching FailWhen
// fails the whole call.
type Fake struct {
	mu       sync.Mutex
	calls    []Call
	nextKey  int64
	upserts  map[string]int64
	versions map[string]int64

	// FailWhen makes the call containing a matching statement fail
	FailWhen func(stmt store.Statement) bool

	// NoKeyWhen makes a matching RETURNING statement yield no row
	NoKeyWhen func(stmt store.Statement) bool
}

// NewFake creates an empty fake store
func NewFake() *Fake {
	return &Fake{
		upserts:  make(map[string]int64),
		versions: make(map[string]int64),
	}
}

// Execute implements store.Store
func (f *Fake) Execute(ctx context.Context, stmt store.Statement) (store.Result, error) {
	results, err := f.record(Call{Statements: []store.Statement{stmt}})
	if err != nil {
		return store.Result{}, err
	}
	return results[0], nil
}

// Batch implements store.Store
func (f *Fake) Batch(ctx context.Context, stmts []store.Statement) ([]store.Result, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	return f.record(Call{Batch: true, Statements: stmts})
}

func (f *Fake) record(call Call) ([]store.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)

	for _, stmt := range call.Statements {
		if f.FailWhen != nil && f.FailWhen(stmt) {
			return nil, ErrInjected
		}
	}

	results := make([]store.Result, len(call.Statements))
	for i, stmt := range call.Statements {
		if !stmt.Returning {
			results[i] = store.Result{RowsAffected: 1}
			continue
		}
		if f.NoKeyWhen != nil && f.NoKeyWhen(stmt) {
			continue
		}
		results[i] = store.Result{Key: f.key(stmt), HasKey: true, RowsAffected: 1}
	}

	return results, nil
}

func (f *Fake) key(stmt store.Statement) int64 {
	if strings.Contains(stmt.SQL, "INSERT INTO artifact_versions ") && len(stmt.Args) > 0 {
		id := fmt.Sprint(stmt.Args[0])
		f.versions[id]++
		return f.versions[id]
	}

	if !strings.Contains(stmt.SQL, "ON CONFLICT") {
		f.nextKey++
		return f.nextKey
	}

	id := stmt.SQL + fmt.Sprintf("%q", stmt.Args)
	if key, ok := f.upserts[id]; ok {
		return key
	}
	f.nextKey++
	f.upserts[id] = f.nextKey
	return f.nextKey
}

// Calls returns every recorded round trip in order
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	calls := make([]Call, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// Statements returns every recorded statement whose SQL contains fragment
func (f *Fake) Statements(fragment string) []store.Statement {
	var stmts []store.Statement
	for _, call := range f.Calls() {
		for _, stmt := range call.Statements {
			if strings.Contains(stmt.SQL, fragment) {
				stmts = append(stmts, stmt)
			}
		}
	}
	return stmts
}

// Inserts is a FailWhen/NoKeyWhen helper matching inserts into table
func Inserts(table string) func(stmt store.Statement) bool {
	return func(stmt store.Statement) bool {
		return strings.Contains(stmt.SQL, "INSERT INTO "+table+" ")
	}
}
