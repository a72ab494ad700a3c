// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package cache provides an in-memory TTL cache for API responses.
//
// Footprint, timeline, and dataset-month payloads are expensive spatial
// aggregations that only change when summaries regenerate, so they are
// cached with a long TTL (18 hours by default) while everything else uses
// the short default TTL.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cubescope/internal/metrics"
)

// Entry holds a cached value and its expiry.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Stats tracks cache effectiveness.
type Stats struct {
	mu          sync.Mutex
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int
	LastCleanup time.Time
}

// Cache is a thread-safe TTL cache with a background cleanup loop.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	stats   Stats
	done    chan struct{}
	once    sync.Once
}

const cleanupInterval = 5 * time.Minute

// New creates a cache with the given default TTL and starts its cleanup
// goroutine. Call Stop when the cache is no longer needed.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Stop terminates the cleanup goroutine.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) cleanup() {
	now := time.Now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			c.recordEviction()
		}
	}
	total := len(c.entries)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.TotalKeys = total
	c.stats.LastCleanup = now
	c.stats.mu.Unlock()

	metrics.SetCacheSize("response", total)
}

// Get returns the cached value for key, or (nil, false) when absent or
// expired. Expired entries are deleted on access.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.recordMiss()
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry since the read.
		if current, still := c.entries[key]; still && time.Now().After(current.ExpiresAt) {
			delete(c.entries, key)
			c.recordEviction()
		}
		c.mu.Unlock()
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return entry.Data, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, data interface{}) {
	c.SetWithTTL(key, data, c.ttl)
}

// SetWithTTL stores a value with an explicit TTL.
func (c *Cache) SetWithTTL(key string, data interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	}
	total := len(c.entries)
	c.mu.Unlock()

	metrics.SetCacheSize("response", total)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	metrics.SetCacheSize("response", 0)
}

// Len returns the number of entries including any not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// HitRate returns the fraction of lookups served from cache.
func (c *Cache) HitRate() float64 {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	total := c.stats.Hits + c.stats.Misses
	if total == 0 {
		return 0
	}
	return float64(c.stats.Hits) / float64(total)
}

// Snapshot returns a copy of the counters.
func (c *Cache) Snapshot() (hits, misses, evictions int64) {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	return c.stats.Hits, c.stats.Misses, c.stats.Evictions
}

func (c *Cache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	metrics.RecordCacheHit("response")
}

func (c *Cache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
	metrics.RecordCacheMiss("response")
}

func (c *Cache) recordEviction() {
	c.stats.mu.Lock()
	c.stats.Evictions++
	c.stats.mu.Unlock()
	metrics.RecordCacheEviction("response")
}

// GenerateKey derives a stable cache key from a method name and its
// parameters. Parameters are canonicalized through JSON before hashing so
// equivalent requests share a key.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fall back to the fmt rendering; still deterministic for the
		// param structs used by the handlers.
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
