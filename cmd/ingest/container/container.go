package container

import (
	"fmt"

	"github.com/lyzr/catalog-ingest/cmd/ingest/repository"
	"github.com/lyzr/catalog-ingest/cmd/ingest/service"
	"github.com/lyzr/catalog-ingest/common/bootstrap"
	"github.com/lyzr/catalog-ingest/common/policy"
	"github.com/lyzr/catalog-ingest/common/ratelimit"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	ArtifactRepo *repository.ArtifactRepository
	TagRepo      *repository.TagRepository
	VersionRepo  *repository.VersionRepository
	OrphanRepo   *repository.OrphanRepository

	// Services
	IngestService *service.IngestService

	// Submitter is IngestService, serialized per identifier when the
	// submission lock is enabled
	Submitter service.Submitter

	// Boundary
	Policy      *policy.Policy
	RateLimiter *ratelimit.RateLimiter // nil when rate limiting is off
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	// Initialize repositories
	artifactRepo := repository.NewArtifactRepository(components.Store)
	tagRepo := repository.NewTagRepository(components.Store)
	versionRepo := repository.NewVersionRepository(components.Store)
	orphanRepo := repository.NewOrphanRepository(components.Store)

	// Initialize services (bottom-up: dependencies first)
	ingestService := service.NewIngestService(artifactRepo, tagRepo, versionRepo, components.Logger)

	var submitter service.Submitter = ingestService
	if cfg.Submit.LockEnabled {
		if components.Redis == nil {
			return nil, fmt.Errorf("submission lock enabled but redis is not connected")
		}
		submitter = service.NewSerializedIngestService(ingestService, components.Redis, cfg.Submit.LockTTL, components.Logger)
	}

	admission, err := policy.Compile(cfg.Submit.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to compile submission policy: %w", err)
	}

	var limiter *ratelimit.RateLimiter
	if cfg.Submit.RateLimit > 0 {
		if components.Redis == nil {
			return nil, fmt.Errorf("submission rate limit enabled but redis is not connected")
		}
		limiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), components.Logger)
	}

	components.Logger.Info("service container ready",
		"lock", cfg.Submit.LockEnabled,
		"rate_limit", cfg.Submit.RateLimit,
		"policy", admission.Expression() != "",
	)

	return &Container{
		Components:    components,
		ArtifactRepo:  artifactRepo,
		TagRepo:       tagRepo,
		VersionRepo:   versionRepo,
		OrphanRepo:    orphanRepo,
		IngestService: ingestService,
		Submitter:     submitter,
		Policy:        admission,
		RateLimiter:   limiter,
	}, nil
}
