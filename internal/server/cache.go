package server

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/knowledgescope/concept-resolution-engine/pkg/config"
	pkgredis "github.com/knowledgescope/concept-resolution-engine/pkg/redis"
	"github.com/knowledgescope/concept-resolution-engine/pkg/resilience"
)

const (
	keyPrefix = "cre:"

	// Redis round-trips are bounded so a stalled cache cannot stall a query.
	redisOpTimeout = 250 * time.Millisecond
)

// ResponseCache is a Redis-backed cache for rendered API responses, shared
// across replicas. Concurrent misses for the same key are coalesced with
// singleflight so the underlying engines compute each response once.
type ResponseCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResponseCache wraps an established Redis client.
func NewResponseCache(client *pkgredis.Client, cfg config.RedisConfig) *ResponseCache {
	return &ResponseCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "response-cache"),
	}
}

// Get returns the cached payload for key, if present.
func (c *ResponseCache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	var data string
	err := resilience.WithTimeout(ctx, redisOpTimeout, "cache get", func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return json.RawMessage(data), true
}

// Set stores a payload under key with the configured TTL. Failures are
// logged and swallowed; the response was already computed.
func (c *ResponseCache) Set(ctx context.Context, key string, payload json.RawMessage) {
	err := resilience.WithTimeout(ctx, redisOpTimeout, "cache set", func(ctx context.Context) error {
		return c.client.Set(ctx, key, []byte(payload), c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached payload for key, computing and storing it
// on a miss. The second return value reports whether the payload came from
// the cache.
func (c *ResponseCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() (json.RawMessage, error),
) (json.RawMessage, bool, error) {
	if payload, ok := c.Get(ctx, key); ok {
		return payload, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if payload, ok := c.Get(ctx, key); ok {
			return payload, nil
		}
		payload, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(json.RawMessage), false, nil
}

// Invalidate deletes every cached response.
func (c *ResponseCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating response cache: %w", err)
	}
	c.logger.Info("response cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns the hit and miss counts since startup.
func (c *ResponseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// cacheKey hashes an endpoint name and its normalized parameters into a
// fixed-length Redis key.
func cacheKey(endpoint string, params string) string {
	hash := sha256.Sum256([]byte(endpoint + "|" + params))
	return fmt.Sprintf("%s%s:%x", keyPrefix, endpoint, hash[:16])
}
