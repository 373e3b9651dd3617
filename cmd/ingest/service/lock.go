package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/catalog-ingest/cmd/ingest/models"
	"github.com/lyzr/catalog-ingest/common/logger"
)

// Locker takes expiring named locks
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// Submitter is the pipeline entry point
type Submitter interface {
	Submit(ctx context.Context, artifact *models.Artifact) (*models.Receipt, error)
}

// SerializedIngestService admits one in-flight submission per external
// identifier, so concurrent submissions of the same artifact cannot be
// assigned the same version number.
type SerializedIngestService struct {
	next   Submitter
	locker Locker
	ttl    time.Duration
	log    *logger.Logger
}

// NewSerializedIngestService wraps next with a per-identifier lock
func NewSerializedIngestService(next Submitter, locker Locker, ttl time.Duration, log *logger.Logger) *SerializedIngestService {
	return &SerializedIngestService{
		next:   next,
		locker: locker,
		ttl:    ttl,
		log:    log,
	}
}

// Submit runs the pipeline while holding the identifier's lock. A held lock
// fails fast with an error wrapping redis.ErrLockHeld.
func (s *SerializedIngestService) Submit(ctx context.Context, artifact *models.Artifact) (*models.Receipt, error) {
	key := lockKey(artifact.ID)

	release, err := s.locker.Lock(ctx, key, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to lock artifact %s: %w", artifact.ID, err)
	}
	defer func() {
		// The request context may already be cancelled.
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.WithContext(ctx).Warn("failed to release submission lock", "key", key, "error", err)
		}
	}()

	return s.next.Submit(ctx, artifact)
}

func lockKey(artifactID string) string {
	return "submit:" + artifactID
}
