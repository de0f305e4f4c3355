package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

type MultiLevelConfig struct {
	L1MaxEntries int
	// L1TTL caps how long a value lives in process memory, independently of
	// the TTL requested for redis.
	L1TTL   time.Duration
	Breaker *CircuitBreakerConfig
}

func DefaultMultiLevelConfig() *MultiLevelConfig {
	return &MultiLevelConfig{
		L1MaxEntries: DefaultMemoryCacheSize,
		L1TTL:        5 * time.Minute,
		Breaker:      DefaultCircuitBreakerConfig(),
	}
}

// MultiLevelCache reads through an in-process L1 and an optional redis L2.
// Redis failures degrade to misses; they never fail a read.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      Cache
	l1TTL   time.Duration
	breaker *CircuitBreaker
	metrics *counters
	logger  zerolog.Logger
}

func NewMultiLevelCache(l2 Cache, config *MultiLevelConfig, logger zerolog.Logger) *MultiLevelCache {
	if config == nil {
		config = DefaultMultiLevelConfig()
	}
	c := &MultiLevelCache{
		l1:      NewMemoryCache(config.L1MaxEntries),
		l2:      l2,
		l1TTL:   config.L1TTL,
		breaker: NewCircuitBreaker(config.Breaker),
		metrics: newCounters(),
		logger:  logger.With().Str("component", "cache").Logger(),
	}
	c.breaker.OnStateChange(func(from, to CircuitBreakerState) {
		ev := c.logger.Info()
		if to == CircuitBreakerOpen {
			ev = c.logger.Warn()
		}
		ev.Str("from", from.String()).Str("to", to.String()).Msg("redis circuit breaker state changed")
	})
	return c
}

func (c *MultiLevelCache) l1Expiry(ttl time.Duration) time.Duration {
	if c.l1TTL > 0 && (ttl <= 0 || ttl > c.l1TTL) {
		return c.l1TTL
	}
	return ttl
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, c.l1Expiry(ttl)); err != nil {
		c.metrics.errors.Add(1)
		return err
	}
	c.metrics.sets.Add(1)

	if c.l2 != nil {
		err := c.breaker.Execute(func() error { return c.l2.Set(ctx, key, value, ttl) })
		if err != nil {
			c.l2Failed("set", key, err)
		}
	}
	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := c.l1.Get(ctx, key, dest)
	if err == nil {
		c.metrics.hit(true)
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.metrics.errors.Add(1)
		return err
	}

	if c.l2 != nil {
		err = c.breaker.Execute(func() error { return c.l2.Get(ctx, key, dest) })
		switch {
		case err == nil:
			c.metrics.hit(false)
			if setErr := c.l1.Set(ctx, key, dest, c.l1TTL); setErr != nil {
				c.logger.Warn().Err(setErr).Str("key", key).Msg("failed to promote value to memory cache")
			}
			return nil
		case !errors.Is(err, ErrCacheMiss):
			c.l2Failed("get", key, err)
		}
	}

	c.metrics.misses.Add(1)
	return ErrCacheMiss
}

// Delete removes key from both levels. An L2 failure is returned because a
// stale redis entry would be served to the next reader.
func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.l1.Delete(ctx, key)
	c.metrics.deletes.Add(1)

	if c.l2 != nil {
		if err := c.breaker.Execute(func() error { return c.l2.Delete(ctx, key) }); err != nil {
			c.l2Failed("delete", key, err)
			return err
		}
	}
	return nil
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	if err := c.l1.DeletePattern(ctx, pattern); err != nil {
		return err
	}
	c.metrics.deletes.Add(1)

	if c.l2 != nil {
		if err := c.breaker.Execute(func() error { return c.l2.DeletePattern(ctx, pattern) }); err != nil {
			c.l2Failed("delete_pattern", pattern, err)
			return err
		}
	}
	return nil
}

func (c *MultiLevelCache) Exists(ctx context.Context, key string) (bool, error) {
	if found, _ := c.l1.Exists(ctx, key); found {
		return true, nil
	}
	if c.l2 == nil {
		return false, nil
	}

	var found bool
	err := c.breaker.Execute(func() error {
		var err error
		found, err = c.l2.Exists(ctx, key)
		return err
	})
	if err != nil {
		c.l2Failed("exists", key, err)
		return false, nil
	}
	return found, nil
}

func (c *MultiLevelCache) l2Failed(op, key string, err error) {
	c.metrics.errors.Add(1)
	if errors.Is(err, ErrCircuitBreakerOpen) {
		c.logger.Debug().Str("op", op).Str("key", key).Msg("redis skipped, circuit open")
		return
	}
	c.logger.Warn().Err(err).Str("op", op).Str("key", key).Msg("redis cache operation failed")
}

func (c *MultiLevelCache) Metrics() CacheMetrics {
	return c.metrics.snapshot()
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":      c.l1.Stats(),
		"metrics": c.metrics.snapshot(),
	}
	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
		stats["circuit_breaker"] = c.breaker.GetStats()
	}
	return stats
}

// Health reports ErrCacheDown when the redis level is unreachable. The
// memory level is always healthy.
func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Health(ctx); err != nil {
		return errors.Join(ErrCacheDown, err)
	}
	return nil
}

func (c *MultiLevelCache) Close() error {
	c.l1.Close()
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}
