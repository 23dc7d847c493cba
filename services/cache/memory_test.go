package cachesvc

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var got entry
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", entry{Name: "kata", Count: 3}, 0))
	found, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entry{Name: "kata", Count: 3}, got)
}

func TestMemoryCache_expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	found, _ := c.Get(ctx, "k", &v)
	assert.True(t, found)

	c.now = func() time.Time { return now.Add(time.Minute) }
	found, _ = c.Get(ctx, "k", &v)
	assert.False(t, found)
}

func TestMemoryCache_Take(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "pending", entry{Name: "x"}, time.Minute))

	var taken int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var e entry
			if found, err := c.Take(ctx, "pending", &e); err == nil && found {
				atomic.AddInt32(&taken, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), taken)
}

func TestMemoryCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	for _, k := range []string{"privileges:catalog", "privileges:user:1", "statuschange:1"} {
		require.NoError(t, c.Set(ctx, k, true, 0))
	}

	require.NoError(t, c.DeletePrefix(ctx, "privileges:"))

	var v bool
	found, _ := c.Get(ctx, "privileges:catalog", &v)
	assert.False(t, found)
	found, _ = c.Get(ctx, "privileges:user:1", &v)
	assert.False(t, found)
	found, _ = c.Get(ctx, "statuschange:1", &v)
	assert.True(t, found)

	require.NoError(t, c.Delete(ctx, "statuschange:1", "missing"))
	found, _ = c.Get(ctx, "statuschange:1", &v)
	assert.False(t, found)
}

func TestMemoryCache_Allow(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := c.Allow(ctx, "ip", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, _ := c.Allow(ctx, "ip", 3, time.Minute)
	assert.False(t, ok)

	ok, _ = c.Allow(ctx, "other", 3, time.Minute)
	assert.True(t, ok)

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	ok, _ = c.Allow(ctx, "ip", 3, time.Minute)
	assert.True(t, ok)
}
