package tessera

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetPut(t *testing.T) {
	c := NewTransformationCache(CacheConfig{})

	_, found := c.Get("k")
	assert.False(t, found)

	c.Put("k", 42)
	v, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, 42, v)

	m := c.Metrics()
	assert.Equal(t, uint64(1), m.Hits)
	assert.Equal(t, uint64(1), m.Misses)
	assert.Equal(t, 1, m.Size)
}

func TestCacheOverwrite(t *testing.T) {
	c := NewTransformationCache(CacheConfig{})
	c.Put("k", 1)
	c.Put("k", 2)

	v, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestCacheLRUEviction(t *testing.T) {
	c := NewTransformationCache(CacheConfig{MaxEntries: 10})

	for i := 0; i < 20; i++ {
		c.Put(fmt.Sprintf("key-%d", i), i)
	}

	m := c.Metrics()
	assert.LessOrEqual(t, m.Size, 10)
	assert.Equal(t, uint64(10), m.Evictions)

	// The oldest ten are gone, the newest ten remain.
	_, found := c.Get("key-0")
	assert.False(t, found)
	_, found = c.Get("key-19")
	assert.True(t, found)
}

func TestCacheLRUPromotionOnGet(t *testing.T) {
	c := NewTransformationCache(CacheConfig{MaxEntries: 2})
	c.Put("a", 1)
	c.Put("b", 2)

	// Touch "a" so "b" becomes the LRU victim.
	_, found := c.Get("a")
	require.True(t, found)

	c.Put("c", 3)
	_, found = c.Get("a")
	assert.True(t, found, "promoted entry should survive")
	_, found = c.Get("b")
	assert.False(t, found, "LRU entry should be evicted")
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewTransformationCache(CacheConfig{TTL: time.Second})
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("k", 1)
	_, found := c.Get("k")
	assert.True(t, found, "fresh entry should hit")

	now = now.Add(1500 * time.Millisecond)
	_, found = c.Get("k")
	assert.False(t, found, "expired entry should miss")

	m := c.Metrics()
	assert.Equal(t, uint64(1), m.Hits)
	assert.Equal(t, uint64(1), m.Misses)
	assert.Equal(t, uint64(1), m.Expirations)
	assert.Equal(t, uint64(0), m.Evictions, "TTL removal is not a capacity eviction")
	assert.Equal(t, 0, m.Size, "expired entry is removed on lookup")
}

func TestCacheNoResultValueRoundTrips(t *testing.T) {
	// A cached "no result" is a real value, distinct from absence.
	c := NewTransformationCache(CacheConfig{})
	c.Put("outside", cachedValue[GridPoint]{ok: false})

	v, found := c.Get("outside")
	require.True(t, found)
	cv := v.(cachedValue[GridPoint])
	assert.False(t, cv.ok)
}

func TestCacheHitRateAndTarget(t *testing.T) {
	c := NewTransformationCache(CacheConfig{TargetHitRate: 0.9})

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("p%d", i)
		c.Get(key)
		c.Put(key, i)
	}
	for round := 0; round < 9; round++ {
		for i := 0; i < 100; i++ {
			_, found := c.Get(fmt.Sprintf("p%d", i))
			require.True(t, found)
		}
	}

	m := c.Metrics()
	assert.Equal(t, uint64(900), m.Hits)
	assert.Equal(t, uint64(100), m.Misses)
	assert.InDelta(t, 0.9, m.HitRate, 1e-9)
	assert.True(t, m.MeetsTarget)
}

func TestCacheClear(t *testing.T) {
	c := NewTransformationCache(CacheConfig{})
	c.Put("k", 1)
	c.Get("k")
	c.Get("missing")

	c.Clear()
	m := c.Metrics()
	assert.Zero(t, m.Hits)
	assert.Zero(t, m.Misses)
	assert.Zero(t, m.Evictions)
	assert.Zero(t, m.Size)
}

func TestCacheMetricsDisabled(t *testing.T) {
	c := NewTransformationCache(CacheConfig{DisableMetrics: true})
	c.Put("k", 1)
	c.Get("k")
	c.Get("missing")

	m := c.Metrics()
	assert.Zero(t, m.Hits)
	assert.Zero(t, m.Misses)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewTransformationCache(CacheConfig{MaxEntries: 64})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", i%100)
				if i%3 == 0 {
					c.Put(key, i)
				} else {
					c.Get(key)
				}
			}
		}(g)
	}
	wg.Wait()

	m := c.Metrics()
	assert.LessOrEqual(t, m.Size, 64)
}
