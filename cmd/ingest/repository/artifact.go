package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/catalog-ingest/cmd/ingest/models"
	"github.com/lyzr/catalog-ingest/common/store"
)

// ArtifactRepository writes an artifact's rows in dependency order: the
// parent row, then its files, then everything that references either.
// Rows written here stay invisible until VersionRepository.Commit runs.
type ArtifactRepository struct {
	store store.Store
	now   func() time.Time
}

// NewArtifactRepository creates a new artifact repository
func NewArtifactRepository(s store.Store) *ArtifactRepository {
	return &ArtifactRepository{store: s, now: time.Now}
}

// InsertArtifact inserts the parent row and returns its generated key
func (r *ArtifactRepository) InsertArtifact(ctx context.Context, row models.ArtifactRow) (models.ArtifactKey, error) {
	res, err := r.store.Execute(ctx, insertArtifactStmt.Bind(
		row.Slug,
		row.Title,
		row.Summary,
		row.Description,
		row.FromYear,
		row.ToYear,
		r.now().Unix(),
	))
	if err != nil {
		return 0, fmt.Errorf("failed to insert artifact: %w", err)
	}

	key, err := res.RequireKey()
	if err != nil {
		return 0, fmt.Errorf("inserting artifact did not return a database id: %w", err)
	}

	return models.ArtifactKey(key), nil
}

// InsertFiles inserts the file rows in one batch and pairs each file with its
// key, in submission order. No files means no round trip.
func (r *ArtifactRepository) InsertFiles(ctx context.Context, artifactKey models.ArtifactKey, files []models.ArtifactFile) ([]models.KeyedFile, error) {
	if len(files) == 0 {
		return nil, nil
	}

	stmts := make([]store.Statement, len(files))
	for i, file := range files {
		stmts[i] = insertFileStmt.Bind(
			int64(artifactKey),
			file.Filename,
			file.Name,
			file.MediaType,
			file.Multihash,
			file.Lang,
			file.Hidden,
		)
	}

	results, err := r.store.Batch(ctx, stmts)
	if err != nil {
		return nil, fmt.Errorf("failed to insert files: %w", err)
	}

	keyed := make([]models.KeyedFile, len(files))
	for i, file := range files {
		key, err := results[i].RequireKey()
		if err != nil {
			return nil, fmt.Errorf("inserting file %q did not return a database id: %w", file.Filename, err)
		}
		keyed[i] = models.KeyedFile{ArtifactFile: file, Key: models.FileKey(key)}
	}

	return keyed, nil
}

// ChildStatements builds the alias, file alias, link and tag reference
// inserts for one artifact. Each tag key is referenced once.
func ChildStatements(artifactKey models.ArtifactKey, d *models.Decomposed, files []models.KeyedFile, tagKeys []models.TagKey) []store.Statement {
	parent := int64(artifactKey)

	var stmts []store.Statement

	for _, alias := range d.Aliases {
		stmts = append(stmts, insertArtifactAliasStmt.Bind(parent, alias))
	}

	for _, file := range files {
		for _, alias := range file.Aliases {
			stmts = append(stmts, insertFileAliasStmt.Bind(int64(file.Key), alias))
		}
	}

	for _, link := range d.Links {
		stmts = append(stmts, insertLinkStmt.Bind(parent, link.Name, link.URL))
	}

	seen := make(map[models.TagKey]bool, len(tagKeys))
	for _, key := range tagKeys {
		if seen[key] {
			continue
		}
		seen[key] = true
		stmts = append(stmts, insertArtifactTagStmt.Bind(parent, int64(key)))
	}

	return stmts
}

// InsertChildren writes every child row that references the artifact or its
// files as a single batch. Nothing to write means no round trip.
func (r *ArtifactRepository) InsertChildren(ctx context.Context, artifactKey models.ArtifactKey, d *models.Decomposed, files []models.KeyedFile, tagKeys []models.TagKey) error {
	stmts := ChildStatements(artifactKey, d, files, tagKeys)
	if len(stmts) == 0 {
		return nil
	}

	if _, err := r.store.Batch(ctx, stmts); err != nil {
		return fmt.Errorf("failed to insert artifact children: %w", err)
	}

	return nil
}
