package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lyzr/catalog-ingest/common/config"
)

// ErrLockHeld is returned when another holder owns a lock
var ErrLockHeld = errors.New("lock is held by another submission")

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// releaseScript deletes the lock only if the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// Client wraps redis.Client with common operations and instrumentation
type Client struct {
	redis  *redis.Client
	logger Logger
}

// NewClient creates a new Redis client wrapper
func NewClient(redisClient *redis.Client, logger Logger) *Client {
	return &Client{
		redis:  redisClient,
		logger: logger,
	}
}

// Dial connects to the Redis server named by cfg
func Dial(ctx context.Context, cfg config.RedisConfig, logger Logger) (*Client, error) {
	raw := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := raw.Ping(pingCtx).Err(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	logger.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return NewClient(raw, logger), nil
}

// GetUnderlying returns the underlying redis.Client for advanced operations
func (c *Client) GetUnderlying() *redis.Client {
	return c.redis
}

// SetNX sets a key only if it doesn't exist
func (c *Client) SetNX(ctx context.Context, key, value string, expiry time.Duration) (bool, error) {
	ok, err := c.redis.SetNX(ctx, key, value, expiry).Result()
	if err != nil {
		c.logger.Error("redis SETNX failed", "key", key, "error", err)
		return false, fmt.Errorf("failed to setnx key %s: %w", key, err)
	}
	c.logger.Debug("redis SETNX", "key", key, "acquired", ok)
	return ok, nil
}

// Lock takes an expiring lock on key. The returned release function gives
// the lock up if it is still owned by this caller; an expired lock taken
// over by someone else is left alone.
func (c *Client) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()

	ok, err := c.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, c.redis, []string{key}, token).Err(); err != nil {
			c.logger.Error("redis lock release failed", "key", key, "error", err)
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}

	return release, nil
}

// Health pings the server
func (c *Client) Health(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the connection pool
func (c *Client) Close() error {
	return c.redis.Close()
}
