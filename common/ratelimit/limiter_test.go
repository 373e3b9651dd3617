package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/catalog-ingest/common/logger"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { raw.Close() })

	return NewRateLimiter(raw, logger.Discard()), mr
}

func TestCheckUserLimit_BlocksAfterLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := limiter.CheckUserLimit(ctx, "user", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, int64(i), res.CurrentCount)
	}

	res, err := limiter.CheckUserLimit(ctx, "user", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(3), res.Limit)
	assert.Greater(t, res.RetryAfterSeconds, int64(0))

	other, err := limiter.CheckUserLimit(ctx, "someone-else", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "counters are per user")
}

func TestCheckUserLimit_WindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	_, err := limiter.CheckUserLimit(ctx, "user", 1, time.Minute)
	require.NoError(t, err)

	res, err := limiter.CheckUserLimit(ctx, "user", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(time.Minute + time.Second)

	res, err = limiter.CheckUserLimit(ctx, "user", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestResetLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	_, err := limiter.CheckUserLimit(ctx, "user", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, limiter.ResetLimit(ctx, "user"))

	res, err := limiter.CheckUserLimit(ctx, "user", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
