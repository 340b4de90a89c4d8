package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/email-classifier/internal/core"
)

// RedisCache stores entries as JSON values. Redis expires keys itself, so
// Cleanup has nothing to do.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

type redisEntry struct {
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewRedisCache connects to the server at url (redis://host:port/db).
func NewRedisCache(ctx context.Context, url, prefix string, logger *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisCacheFromClient(client, prefix, logger), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// Get retrieves a cached entry
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if !time.Now().Before(stored.ExpiresAt) {
		return nil, ErrExpired
	}
	return &core.CacheEntry{
		Key:        key,
		Category:   stored.Category,
		Confidence: stored.Confidence,
		CreatedAt:  stored.CreatedAt,
		ExpiresAt:  stored.ExpiresAt,
	}, nil
}

// Set stores a cache entry with a TTL matching its expiry.
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(redisEntry{
		Category:   entry.Category,
		Confidence: entry.Confidence,
		CreatedAt:  entry.CreatedAt,
		ExpiresAt:  entry.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(entry.Key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op; keys carry their own TTL.
func (c *RedisCache) Cleanup(context.Context) error {
	return nil
}

// Stop closes the client.
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close redis client", zap.Error(err))
	}
}
