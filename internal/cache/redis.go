package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOpTimeout = 3 * time.Second
	scanTimeout      = 10 * time.Second
	scanBatchSize    = 100
)

// CacheConfig holds the connection settings for the redis level. KeyPrefix
// namespaces every key the cache writes.
type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  defaultOpTimeout,
		WriteTimeout: defaultOpTimeout,
		KeyPrefix:    "tasktracker:",
	}
}

func (c *CacheConfig) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// NewRedisClient builds the client shared by the cache and the job queue.
func NewRedisClient(config *CacheConfig) *redis.Client {
	if config == nil {
		config = DefaultCacheConfig()
	}
	return redis.NewClient(config.options())
}

// RedisCache stores JSON-encoded values under a key prefix.
type RedisCache struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

func NewRedisCache(config *CacheConfig) *RedisCache {
	if config == nil {
		config = DefaultCacheConfig()
	}
	return NewRedisCacheFromClient(NewRedisClient(config), config.KeyPrefix)
}

func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, opTimeout: defaultOpTimeout}
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisCache) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opTimeout)
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()
	if err := r.client.Set(ctx, r.key(key), payload, expiration).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	payload, err := r.client.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return r.client.Del(ctx, r.key(key)).Err()
}

// DeletePattern removes every key matching pattern. Keys are found with
// SCAN and removed in pipelined batches.
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	flush := func(keys []string) error {
		if len(keys) == 0 {
			return nil
		}
		_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, keys...)
			return nil
		})
		return err
	}

	batch := make([]string, 0, scanBatchSize)
	iter := r.client.Scan(ctx, 0, r.key(pattern), scanBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := flush(batch); err != nil {
				return fmt.Errorf("redis delete %s: %w", pattern, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if err := flush(batch); err != nil {
		return fmt.Errorf("redis delete %s: %w", pattern, err)
	}
	return nil
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(key)).Result()
	return n > 0, err
}

func (r *RedisCache) Health(ctx context.Context) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Stats() map[string]interface{} {
	pool := r.client.PoolStats()
	return map[string]interface{}{
		"prefix":        r.prefix,
		"pool_hits":     pool.Hits,
		"pool_misses":   pool.Misses,
		"pool_timeouts": pool.Timeouts,
		"pool_total":    pool.TotalConns,
		"pool_idle":     pool.IdleConns,
	}
}

// Close closes the underlying client, including when it is shared.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
