package cache

import (
	"context"
	"time"
)

// Service defines the interface for generic caching operations
// External packages should use this interface, not the concrete implementations.
// Set replaces the whole value in one step; readers never observe a partial write.
type Service interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
