package core

import (
	"context"
	"time"
)

// Cache is a JSON value store shared by API instances. Implemented by services/cache.
type Cache interface {
	// Get decodes the value stored at key into dst. found is false on a miss.
	Get(ctx context.Context, key string, dst interface{}) (found bool, err error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	// Take is Get followed by Delete, atomically: concurrent callers never take the same value twice.
	Take(ctx context.Context, key string, dst interface{}) (found bool, err error)
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// RateLimiter counts hits per key over a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, per time.Duration) (bool, error)
}
