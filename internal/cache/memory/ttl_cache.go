// Package memory provides in-process implementations of the domain cache
// and event bus for single-node runs without Redis.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

type entry struct {
	value  []byte
	stored time.Time
}

// TTLCache implements domain.Cache in process memory. Expired entries are
// dropped lazily on Get and by Sweep.
type TTLCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// NewTTLCache creates a cache whose entries live for ttl.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Get returns the stored value and its age, or domain.ErrCacheMiss.
func (c *TTLCache) Get(_ context.Context, key string) ([]byte, time.Duration, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, 0, domain.ErrCacheMiss
	}

	age := c.now().Sub(e.stored)
	if age >= c.ttl {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.stored.Equal(e.stored) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, 0, domain.ErrCacheMiss
	}
	return e.value, age, nil
}

// Put stores a copy of value under key.
func (c *TTLCache) Put(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	c.mu.Lock()
	c.entries[key] = entry{value: v, stored: c.now()}
	c.mu.Unlock()
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (c *TTLCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.stored) >= c.ttl {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// TTL returns how long entries stay fresh.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ domain.Cache = (*TTLCache)(nil)
