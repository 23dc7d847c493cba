// Package cachesvc implements core.Cache and core.RateLimiter on redis, or in process memory
// when no redis server is configured (tests, single instance deployments).
package cachesvc

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
)

type memItem struct {
	data      []byte
	expiresAt time.Time // zero: never
}

type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memItem
	hits  map[string][]time.Time
	now   func() time.Time
}

var (
	_ core.Cache       = (*MemoryCache)(nil)
	_ core.RateLimiter = (*MemoryCache)(nil)
)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memItem),
		hits:  make(map[string][]time.Time),
		now:   time.Now,
	}
}

// get must be called with mu held.
func (c *MemoryCache) get(key string) ([]byte, bool) {
	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return item.data, true
}

func (c *MemoryCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	data, ok := c.get(key)
	c.mu.Unlock()
	return decode(key, data, ok, dst)
}

func (c *MemoryCache) Set(_ context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "encoding %q", key)
	}
	item := memItem{data: data}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Take(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	data, ok := c.get(key)
	delete(c.items, key)
	c.mu.Unlock()
	return decode(key, data, ok, dst)
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}

func (c *MemoryCache) Allow(_ context.Context, key string, limit int, per time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	floor := now.Add(-per)
	kept := c.hits[key][:0]
	for _, t := range c.hits[key] {
		if t.After(floor) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	c.hits[key] = kept
	return len(kept) <= limit, nil
}

func decode(key string, data []byte, found bool, dst interface{}) (bool, error) {
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "decoding %q", key)
	}
	return true, nil
}
