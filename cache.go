package tessera

import (
	"container/list"
	"sync"
	"time"
)

// Cache defaults.
const (
	DefaultMaxEntries    = 1000
	DefaultTTL           = 5 * time.Second
	DefaultTargetHitRate = 0.9
)

// CacheConfig controls the transformation cache.
type CacheConfig struct {
	// MaxEntries bounds the cache size; the least-recently-used entry is
	// evicted when the bound is exceeded. Defaults to DefaultMaxEntries.
	MaxEntries int
	// TTL bounds entry staleness. An entry older than TTL is evicted on
	// lookup and reported as a miss. Zero disables expiry.
	TTL time.Duration
	// EnableMetrics toggles hit/miss/eviction counting. Defaults to true
	// (set DisableMetrics to turn off).
	DisableMetrics bool
	// TargetHitRate is advisory: reported via CacheMetrics.MeetsTarget,
	// never enforced. Defaults to DefaultTargetHitRate.
	TargetHitRate float64
}

func (c CacheConfig) normalize() CacheConfig {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.TargetHitRate <= 0 {
		c.TargetHitRate = DefaultTargetHitRate
	}
	return c
}

// CacheMetrics is a point-in-time snapshot of cache effectiveness.
type CacheMetrics struct {
	Hits          uint64
	Misses        uint64
	Evictions     uint64 // capacity evictions only
	Expirations   uint64 // TTL removals, counted separately
	Size          int
	HitRate       float64 // Hits / (Hits + Misses); 0 when no lookups yet
	TargetHitRate float64
	MeetsTarget   bool
}

// cacheEntry is one stored value with its timestamps.
type cacheEntry struct {
	key            string
	value          any
	insertedAt     time.Time
	lastAccessedAt time.Time
}

// TransformationCache is a string-keyed LRU cache with TTL expiry and
// hit/miss/eviction metrics. A stored value may itself represent "no result"
// for the keyed input; the cache makes no distinction — absence of a key is
// the only miss condition (besides expiry).
//
// All operations take the cache mutex; the check-then-act sequence around a
// miss (lookup, compute, insert) is made atomic one level up, by the
// TransformationManager.
type TransformationCache struct {
	mu  sync.Mutex
	cfg CacheConfig

	ll      *list.List // front = most recently used; stores *cacheEntry
	entries map[string]*list.Element

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	// now is stubbed in tests to drive TTL expiry deterministically.
	now func() time.Time
}

// NewTransformationCache creates a cache with the given configuration.
func NewTransformationCache(cfg CacheConfig) *TransformationCache {
	return &TransformationCache{
		cfg:     cfg.normalize(),
		ll:      list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns the value stored under key. A fresh hit promotes the entry to
// most recently used; an entry older than TTL is evicted and reported as a
// miss.
func (c *TransformationCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, found := c.entries[key]
	if !found {
		c.miss()
		return nil, false
	}

	entry := el.Value.(*cacheEntry)
	if c.cfg.TTL > 0 && c.now().Sub(entry.insertedAt) > c.cfg.TTL {
		c.removeElement(el)
		if !c.cfg.DisableMetrics {
			c.expirations++
		}
		c.miss()
		return nil, false
	}

	entry.lastAccessedAt = c.now()
	c.ll.MoveToFront(el)
	if !c.cfg.DisableMetrics {
		c.hits++
	}
	return entry.value, true
}

// Put inserts or overwrites the value under key, evicting the
// least-recently-used entry if the cache is over capacity.
func (c *TransformationCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, found := c.entries[key]; found {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.insertedAt = now
		entry.lastAccessedAt = now
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&cacheEntry{
		key:            key,
		value:          value,
		insertedAt:     now,
		lastAccessedAt: now,
	})
	c.entries[key] = el

	if c.ll.Len() > c.cfg.MaxEntries {
		c.removeElement(c.ll.Back())
		if !c.cfg.DisableMetrics {
			c.evictions++
		}
	}
}

// Len returns the current number of entries.
func (c *TransformationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear removes all entries and zeroes every counter.
func (c *TransformationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.entries)
	c.hits, c.misses, c.evictions, c.expirations = 0, 0, 0, 0
}

// Metrics returns a snapshot of the cache counters.
func (c *TransformationCache) Metrics() CacheMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := CacheMetrics{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Expirations:   c.expirations,
		Size:          c.ll.Len(),
		TargetHitRate: c.cfg.TargetHitRate,
	}
	if total := c.hits + c.misses; total > 0 {
		m.HitRate = float64(c.hits) / float64(total)
	}
	m.MeetsTarget = m.HitRate >= m.TargetHitRate
	return m
}

func (c *TransformationCache) miss() {
	if !c.cfg.DisableMetrics {
		c.misses++
	}
}

// removeElement unlinks an entry. Callers hold c.mu.
func (c *TransformationCache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}
