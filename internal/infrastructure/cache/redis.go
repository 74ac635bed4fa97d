package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"MarketPulse/internal/ports"
	"MarketPulse/pkg/logger"
)

const scanBatch = 500

// RedisCache stores LLM responses in Redis with native expiry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.ResponseCache = (*RedisCache)(nil)

// NewRedisCache wraps an existing client. The caller owns the client.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.OrDiscard(log).With("component", "redis-cache"),
	}
}

// Dial builds a client and verifies connectivity.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, payload, kind string) (string, bool) {
	key := Key(payload, kind)
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("cache get failed", "key", key, "err", err)
		}
		return "", false
	}
	c.logger.Debug("cache hit", "kind", kind)
	return val, true
}

func (c *RedisCache) Put(ctx context.Context, payload, kind, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	key := Key(payload, kind)
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Error("cache put failed", "key", key, "err", err)
	}
}

// Clear removes every key under the LLM prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *RedisCache) Stats(ctx context.Context) ports.CacheStats {
	stats := ports.CacheStats{Backend: "redis", TTL: c.ttl, Status: "active"}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			c.logger.Error("cache stats failed", "err", err)
			stats.Status = "error"
			return stats
		}
		stats.Entries += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return stats
		}
	}
}
