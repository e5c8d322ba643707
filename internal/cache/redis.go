package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ConsentCrawl/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Service using Redis
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a new Redis-based cache; keys are namespaced by prefix
func NewRedisCache(redisURL, prefix string) (Service, error) {
	return newRedisCache(redisURL, prefix)
}

// newRedisCache creates the concrete implementation
func newRedisCache(redisURL, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: prefix,
	}, nil
}

// Get retrieves the raw value for the given key
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return data, nil
}

// Set stores value under key with the specified TTL.
// A single SET replaces the previous value atomically.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Delete removes an entry from Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}
