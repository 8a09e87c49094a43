// Package cache provides the read-through cache used for movie listings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"movie-app/internal/config"
	"movie-app/internal/metrics"
)

// Key prefixes. Every movie listing key starts with MoviesPrefix so that one
// DeletePrefix call drops them all after a catalogue or rating change.
const (
	MoviesPrefix = "movies:"
	TrendingKey  = MoviesPrefix + "trending"
	TopRatedKey  = MoviesPrefix + "top-rated"
)

// Cache stores JSON-encoded values under string keys.
type Cache interface {
	// Get decodes the value stored at key into dst. It reports false on a miss.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", slog.String("addr", cfg.Addr))
	return &RedisCache{rdb: client, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheOp("get", "miss")
		return false, nil
	}
	if err != nil {
		metrics.RecordCacheOp("get", "error")
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.RecordCacheOp("get", "error")
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	metrics.RecordCacheOp("get", "hit")
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.RecordCacheOp("set", "error")
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	metrics.RecordCacheOp("set", "ok")
	return nil
}

// DeletePrefix removes every key starting with prefix using SCAN, never KEYS.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		metrics.RecordCacheOp("invalidate", "error")
		return fmt.Errorf("cache scan %s: %w", prefix, err)
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			metrics.RecordCacheOp("invalidate", "error")
			return fmt.Errorf("cache delete %s: %w", prefix, err)
		}
	}
	metrics.RecordCacheOp("invalidate", "ok")
	c.logger.DebugContext(ctx, "Cache invalidated", slog.String("prefix", prefix), slog.Int("keys", len(keys)))
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Nop never stores anything. It is used when Redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) DeletePrefix(context.Context, string) error { return nil }
