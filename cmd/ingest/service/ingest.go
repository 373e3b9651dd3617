package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lyzr/catalog-ingest/cmd/ingest/models"
	"github.com/lyzr/catalog-ingest/cmd/ingest/repository"
	"github.com/lyzr/catalog-ingest/common/logger"
)

// IngestService records one submission per call.
//
// Rows are written in two phases. Phase one writes the artifact and every
// row that depends on it under a freshly generated artifact key. Phase two
// appends the version row that makes the artifact visible. A failure in phase
// one leaves unreferenced rows that readers never see and `ingest gc`
// reclaims; nothing is rolled back or retried.
type IngestService struct {
	artifacts *repository.ArtifactRepository
	tags      *repository.TagRepository
	versions  *repository.VersionRepository
	log       *logger.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	artifacts *repository.ArtifactRepository,
	tags *repository.TagRepository,
	versions *repository.VersionRepository,
	log *logger.Logger,
) *IngestService {
	return &IngestService{
		artifacts: artifacts,
		tags:      tags,
		versions:  versions,
		log:       log,
	}
}

// Submit ingests artifact and returns the committed version
func (s *IngestService) Submit(ctx context.Context, artifact *models.Artifact) (*models.Receipt, error) {
	log := s.log.WithContext(ctx).WithArtifactID(artifact.ID)

	d := Decompose(artifact)

	var (
		tagKeys     []models.TagKey
		artifactKey models.ArtifactKey
		files       []models.KeyedFile
	)

	// Tags live in a shared dictionary and reference nothing, so they can be
	// resolved alongside the parent and file inserts.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keys, err := s.tags.Resolve(gctx, d.Tags)
		if err != nil {
			return err
		}
		tagKeys = keys
		return nil
	})
	g.Go(func() error {
		key, err := s.artifacts.InsertArtifact(gctx, d.Row)
		if err != nil {
			return err
		}
		artifactKey = key

		keyed, err := s.artifacts.InsertFiles(gctx, key, d.Files)
		if err != nil {
			return err
		}
		files = keyed
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("ingestion failed", "stage", "artifact", "error", err)
		return nil, fmt.Errorf("failed to ingest artifact %s: %w", artifact.ID, err)
	}

	if err := s.artifacts.InsertChildren(ctx, artifactKey, d, files, tagKeys); err != nil {
		log.Error("ingestion failed", "stage", "children", "artifact_key", artifactKey, "error", err)
		return nil, fmt.Errorf("failed to ingest artifact %s: %w", artifact.ID, err)
	}

	// Last step: the version row is the only thing readers resolve through.
	version, err := s.versions.Commit(ctx, artifactKey, artifact.ID)
	if err != nil {
		log.Error("ingestion failed", "stage", "commit", "artifact_key", artifactKey, "error", err)
		return nil, fmt.Errorf("failed to ingest artifact %s: %w", artifact.ID, err)
	}

	log.Info("artifact committed",
		"artifact_key", artifactKey,
		"version", version,
		"files", len(files),
		"links", len(d.Links),
		"aliases", len(d.Aliases),
		"tags", len(tagKeys),
	)

	return &models.Receipt{
		ArtifactID:  artifact.ID,
		ArtifactKey: artifactKey,
		Version:     version,
	}, nil
}
