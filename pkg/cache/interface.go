package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache operations. The API server and
// worker both consume it; Redis backs it in production and tests mock it.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
