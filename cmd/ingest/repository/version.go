package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/catalog-ingest/cmd/ingest/models"
	"github.com/lyzr/catalog-ingest/common/store"
)

// VersionRepository appends to the artifact_versions ledger. The highest
// version row for an artifact id names the artifacts row readers see.
type VersionRepository struct {
	store store.Store
	now   func() time.Time
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(s store.Store) *VersionRepository {
	return &VersionRepository{store: s, now: time.Now}
}

// Commit records artifactKey as the next version of artifactID and returns
// the version number. The first version of an id is 1.
//
// The next number is computed inside the insert, so two concurrent commits
// for the same id can both claim it.
func (r *VersionRepository) Commit(ctx context.Context, artifactKey models.ArtifactKey, artifactID string) (int64, error) {
	res, err := r.store.Execute(ctx, commitVersionStmt.Bind(
		artifactID,
		int64(artifactKey),
		r.now().Unix(),
	))
	if err != nil {
		return 0, fmt.Errorf("failed to commit artifact version: %w", err)
	}

	version, err := res.RequireKey()
	if err != nil {
		return 0, fmt.Errorf("failed to commit artifact version: %w", err)
	}

	return version, nil
}
