// SPDX-License-Identifier: MIT

// Package cache provides a TTL cache for query results, with in-memory,
// Redis-backed and no-op implementations.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/brendacyc/brendacyc/internal/brenda"
)

// Cache stores query results keyed by request.
type Cache interface {
	// Get retrieves cached records. The second result is false when the
	// key is absent or expired.
	Get(key string) ([]brenda.Record, bool)
	// Set stores records under key for ttl.
	Set(key string, records []brenda.Record, ttl time.Duration)
	// Delete removes a key.
	Delete(key string)
	// Clear removes all keys.
	Clear()
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

type entry struct {
	records    []brenda.Record
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	janitor *janitor

	// counters are atomic: Get only holds the read lock
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

// NewMemoryCache creates an in-memory cache. Expired entries are removed
// every cleanupInterval; an interval <= 0 disables the janitor.
func NewMemoryCache(cleanupInterval time.Duration) Cache {
	c := &memoryCache{entries: make(map[string]*entry)}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(key string) ([]brenda.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.entries[key]
	if !found || e.expired() {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.records, true
}

func (c *memoryCache) Set(key string, records []brenda.Record, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		records:    records,
		expiration: time.Now().Add(ttl),
	}
	c.sets.Add(1)
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		Evictions:   c.evictions.Load(),
		CurrentSize: len(c.entries),
	}
}

func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if e.expired() {
			delete(c.entries, key)
			count++
		}
	}
	c.evictions.Add(int64(count))
	return count
}

// Stop stops the background cleanup goroutine.
func (c *memoryCache) Stop() {
	if c.janitor != nil {
		c.janitor.stop <- struct{}{}
	}
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

type noOpCache struct{}

// NewNoOpCache creates a cache that never stores anything.
func NewNoOpCache() Cache {
	return &noOpCache{}
}

func (c *noOpCache) Get(string) ([]brenda.Record, bool)            { return nil, false }
func (c *noOpCache) Set(string, []brenda.Record, time.Duration)    {}
func (c *noOpCache) Delete(string)                                 {}
func (c *noOpCache) Clear()                                        {}
func (c *noOpCache) Stats() Stats                                  { return Stats{} }
