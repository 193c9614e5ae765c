package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// StatsCache wraps another Cache and counts hits and misses. The hit rate
// feeds evidence pack metadata and the metrics endpoint.
type StatsCache struct {
	inner  Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// WithStats wraps a cache with hit/miss accounting.
func WithStats(inner Cache) *StatsCache {
	return &StatsCache{inner: inner}
}

func (c *StatsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, found, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, found, nil
}

func (c *StatsCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, key, value, ttl)
}

func (c *StatsCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *StatsCache) Purge(ctx context.Context) error {
	return c.inner.Purge(ctx)
}

func (c *StatsCache) Close() error {
	return c.inner.Close()
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (c *StatsCache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Counts returns the raw hit and miss counters.
func (c *StatsCache) Counts() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
