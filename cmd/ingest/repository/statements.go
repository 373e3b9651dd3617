package repository

import "github.com/lyzr/catalog-ingest/common/store"

// Placeholders are numbered in order of first appearance so the same text
// runs on Postgres and SQLite.
var (
	insertArtifactStmt = store.PrepareReturning(`
		INSERT INTO artifacts (slug, title, summary, description, from_year, to_year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`)

	insertFileStmt = store.PrepareReturning(`
		INSERT INTO files (artifact, filename, name, media_type, multihash, lang, hidden)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`)

	insertArtifactAliasStmt = store.Prepare(`
		INSERT INTO artifact_aliases (artifact, slug)
		VALUES ($1, $2)
	`)

	insertFileAliasStmt = store.Prepare(`
		INSERT INTO file_aliases (file, filename)
		VALUES ($1, $2)
	`)

	insertLinkStmt = store.Prepare(`
		INSERT INTO links (artifact, name, url)
		VALUES ($1, $2, $3)
	`)

	// The no-op update makes RETURNING yield the existing row on conflict.
	upsertTagStmt = store.PrepareReturning(`
		INSERT INTO tags (kind, name)
		VALUES ($1, $2)
		ON CONFLICT (kind, name) DO UPDATE SET name = excluded.name
		RETURNING id
	`)

	insertArtifactTagStmt = store.Prepare(`
		INSERT INTO artifact_tags (artifact, tag)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`)

	commitVersionStmt = store.PrepareReturning(`
		INSERT INTO artifact_versions (artifact_id, version, artifact, created_at)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM artifact_versions WHERE artifact_id = $1),
			$2,
			$3
		)
		RETURNING version
	`)
)
