// Package cache is a Redis-backed response cache for deterministic query
// endpoints. Identical in-flight computations are collapsed through
// singleflight so a cold key is computed once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/yoavkarmi/songdex/pkg/config"
	pkgredis "github.com/yoavkarmi/songdex/pkg/redis"
)

const keyPrefix = "query:"

// ResponseCache stores marshaled JSON payloads keyed by operation and its
// canonical parameter string. Random discovery is never cached; callers
// decide which operations are deterministic.
type ResponseCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *ResponseCache {
	return &ResponseCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "response-cache"),
	}
}

// GetOrCompute returns the cached payload for op+params, or runs compute,
// caches its JSON encoding, and returns it. The bool reports a cache hit.
func (c *ResponseCache) GetOrCompute(ctx context.Context, op, params string, compute func() (any, error)) ([]byte, bool, error) {
	key := c.buildKey(op, params)
	if payload, ok := c.lookup(ctx, key); ok {
		return payload, true, nil
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if payload, ok := c.lookup(ctx, key); ok {
			return payload, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s response: %w", op, err)
		}
		if err := c.client.Set(ctx, key, payload, c.cfg.CacheTTL); err != nil {
			c.logger.Error("cache set failed", "key", key, "error", err)
		}
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate drops every cached response.
func (c *ResponseCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating response cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats reports hit and miss counts since startup.
func (c *ResponseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResponseCache) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return []byte(data), true
}

func (c *ResponseCache) buildKey(op, params string) string {
	hash := sha256.Sum256([]byte(op + "?" + params))
	return fmt.Sprintf("%s%s:%x", keyPrefix, op, hash[:16])
}
