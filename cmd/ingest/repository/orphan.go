package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/catalog-ingest/common/store"
)

// orphans selects artifacts rows older than $1 that no version row commits
const orphans = `
	SELECT a.id FROM artifacts a
	WHERE a.created_at < $1
	  AND NOT EXISTS (SELECT 1 FROM artifact_versions v WHERE v.artifact = a.id)
`

var (
	countOrphansStmt = store.PrepareReturning(`SELECT COUNT(*) FROM (` + orphans + `) o`)

	// Children first so foreign keys hold after every statement.
	reclaimOrphanStmts = []store.Prepared{
		store.Prepare(`DELETE FROM file_aliases WHERE file IN (SELECT id FROM files WHERE artifact IN (` + orphans + `))`),
		store.Prepare(`DELETE FROM files WHERE artifact IN (` + orphans + `)`),
		store.Prepare(`DELETE FROM links WHERE artifact IN (` + orphans + `)`),
		store.Prepare(`DELETE FROM artifact_aliases WHERE artifact IN (` + orphans + `)`),
		store.Prepare(`DELETE FROM artifact_tags WHERE artifact IN (` + orphans + `)`),
		store.Prepare(`DELETE FROM artifacts WHERE id IN (` + orphans + `)`),
	}
)

// OrphanRepository reclaims rows left behind by submissions that failed
// before their version row was written. Tags are never reclaimed.
type OrphanRepository struct {
	store store.Store
	now   func() time.Time
}

// NewOrphanRepository creates a new orphan repository
func NewOrphanRepository(s store.Store) *OrphanRepository {
	return &OrphanRepository{store: s, now: time.Now}
}

// Count returns how many uncommitted artifacts are older than grace
func (r *OrphanRepository) Count(ctx context.Context, grace time.Duration) (int64, error) {
	res, err := r.store.Execute(ctx, countOrphansStmt.Bind(r.cutoff(grace)))
	if err != nil {
		return 0, fmt.Errorf("failed to count orphaned artifacts: %w", err)
	}

	count, err := res.RequireKey()
	if err != nil {
		return 0, fmt.Errorf("failed to count orphaned artifacts: %w", err)
	}

	return count, nil
}

// Reclaim deletes uncommitted artifacts older than grace along with their
// child rows, and returns the number of artifacts removed. The grace period
// keeps in-flight submissions out of reach.
func (r *OrphanRepository) Reclaim(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := r.cutoff(grace)

	stmts := make([]store.Statement, len(reclaimOrphanStmts))
	for i, stmt := range reclaimOrphanStmts {
		stmts[i] = stmt.Bind(cutoff)
	}

	results, err := r.store.Batch(ctx, stmts)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim orphaned artifacts: %w", err)
	}

	return results[len(results)-1].RowsAffected, nil
}

func (r *OrphanRepository) cutoff(grace time.Duration) int64 {
	return r.now().Add(-grace).Unix()
}
