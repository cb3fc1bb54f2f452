package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Cache layers TTL-bounded aggregates over the same remote store the
// entities live in; there is no in-process cache. Explicit invalidation
// covers the known mutation paths, the TTL bounds staleness for the rest.
type Cache struct {
	store  Store
	logger *zap.Logger
}

func NewCache(store Store, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Invalidate deletes cached aggregates immediately. Mutating operations
// call it synchronously for every cache key their write feeds.
func (c *Cache) Invalidate(ctx context.Context, names ...string) error {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = CacheKey(name)
	}
	return c.store.Del(ctx, keys...)
}

// InvalidateByPrefix sweeps an unbounded family of cache keys, e.g. the
// per-course analytics entries, with a cursor scan.
func (c *Cache) InvalidateByPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.store.Scan(ctx, cursor, CachePattern(prefix), 100)
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.store.Del(ctx, keys...); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// GetOrCompute returns the cached value under name, or computes, caches
// with ttl, and returns it. A cached value that fails to parse counts as a
// miss and is recomputed, never surfaced as an error. A failed cache write
// is logged and the computed value still returned; the cache is an
// optimization, not a source of truth.
func GetOrCompute[T any](ctx context.Context, c *Cache, name string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	key := CacheKey(name)

	raw, err := c.store.Get(ctx, key)
	if err == nil {
		var cached T
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Warn("cache entry failed to decode, recomputing",
			zap.String("key", key))
	} else if !errors.Is(err, ErrNoValue) {
		c.logger.Warn("cache read failed, recomputing",
			zap.String("key", key), zap.Error(err))
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("computed value not cacheable",
			zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := c.store.SetEX(ctx, key, string(payload), ttl); err != nil {
		c.logger.Warn("cache write failed",
			zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
