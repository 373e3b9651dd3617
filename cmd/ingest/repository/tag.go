package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/lyzr/catalog-ingest/cmd/ingest/models"
	"github.com/lyzr/catalog-ingest/common/store"
)

// TagRepository resolves (kind, name) pairs to keys in the shared tag
// dictionary, creating missing entries.
type TagRepository struct {
	store store.Store
}

// NewTagRepository creates a new tag repository
func NewTagRepository(s store.Store) *TagRepository {
	return &TagRepository{store: s}
}

// Resolve upserts every pair and returns one key per pair of the flattened
// input (see models.Flatten), in that order. Repeated pairs are sent once and
// share a key. The batch itself is sent in (kind, name) order. Any pair that
// yields no key fails the whole resolution.
func (r *TagRepository) Resolve(ctx context.Context, tagsByKind map[models.TagKind][]string) ([]models.TagKey, error) {
	tags := models.Flatten(tagsByKind)
	if len(tags) == 0 {
		return nil, nil
	}

	unique := make([]models.Tag, 0, len(tags))
	seen := make(map[models.Tag]bool, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		unique = append(unique, tag)
	}

	// Upserts lock existing rows until the batch ends. Sending them in
	// (kind, name) order keeps concurrent batches from deadlocking.
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Kind != unique[j].Kind {
			return unique[i].Kind < unique[j].Kind
		}
		return unique[i].Name < unique[j].Name
	})

	slot := make(map[models.Tag]int, len(unique))
	stmts := make([]store.Statement, len(unique))
	for i, tag := range unique {
		slot[tag] = i
		stmts[i] = upsertTagStmt.Bind(string(tag.Kind), tag.Name)
	}

	results, err := r.store.Batch(ctx, stmts)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tags: %w", err)
	}

	keys := make([]models.TagKey, len(tags))
	for i, tag := range tags {
		key, err := results[slot[tag]].RequireKey()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tag %s/%q: %w", tag.Kind, tag.Name, err)
		}
		keys[i] = models.TagKey(key)
	}

	return keys, nil
}
