// Package cache provides the process-local runtime cache of stream snapshots.
//
// Entries are keyed by stream identifier and the version observed when the
// snapshot was built. A newer version yields a new key, so stale entries are
// simply never looked up again and no invalidation is needed. The cache is a
// same-process optimization only and never a source of truth.
package cache

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/getpup/pupstore/es"
)

// DefaultCapacity is the LRU capacity used when none is configured.
const DefaultCapacity = 1024

// Key identifies a snapshot of a stream at a version.
type Key struct {
	StreamID string
	Version  int64
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Cache stores stream snapshots. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key Key) (es.Stream, bool)
	Put(key Key, stream es.Stream)
	Len() int
	Stats() Stats
}

type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *counters) record(ok bool) {
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *counters) stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// LRU is a bounded cache evicting the least recently used snapshot.
type LRU struct {
	inner *lru.Cache[Key, es.Stream]
	counters
}

// NewLRU creates a bounded cache. A capacity <= 0 uses DefaultCapacity.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[Key, es.Stream](capacity)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic(err)
	}
	return &LRU{inner: inner}
}

// Get implements Cache.
func (c *LRU) Get(key Key) (es.Stream, bool) {
	s, ok := c.inner.Get(key)
	c.record(ok)
	return s, ok
}

// Put implements Cache.
func (c *LRU) Put(key Key, stream es.Stream) {
	c.inner.Add(key, stream)
}

// Len implements Cache.
func (c *LRU) Len() int {
	return c.inner.Len()
}

// Stats implements Cache.
func (c *LRU) Stats() Stats {
	return c.stats()
}

// Unbounded is a map-backed cache that never evicts.
// Suitable for short-lived processes touching few streams.
type Unbounded struct {
	entries map[Key]es.Stream
	counters
	mu sync.RWMutex
}

// NewUnbounded creates an unbounded cache.
func NewUnbounded() *Unbounded {
	return &Unbounded{entries: make(map[Key]es.Stream)}
}

// Get implements Cache.
func (c *Unbounded) Get(key Key) (es.Stream, bool) {
	c.mu.RLock()
	s, ok := c.entries[key]
	c.mu.RUnlock()
	c.record(ok)
	return s, ok
}

// Put implements Cache.
func (c *Unbounded) Put(key Key, stream es.Stream) {
	c.mu.Lock()
	c.entries[key] = stream
	c.mu.Unlock()
}

// Len implements Cache.
func (c *Unbounded) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats implements Cache.
func (c *Unbounded) Stats() Stats {
	return c.stats()
}

// Noop is a cache that stores nothing.
type Noop struct {
	counters
}

// Get implements Cache.
func (c *Noop) Get(Key) (es.Stream, bool) {
	c.record(false)
	return es.Stream{}, false
}

// Put implements Cache.
func (c *Noop) Put(Key, es.Stream) {}

// Len implements Cache.
func (c *Noop) Len() int { return 0 }

// Stats implements Cache.
func (c *Noop) Stats() Stats { return c.stats() }

var (
	_ Cache = (*LRU)(nil)
	_ Cache = (*Unbounded)(nil)
	_ Cache = (*Noop)(nil)
)
