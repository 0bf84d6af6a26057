package cache

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// Loader produces a value on cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// Cache is a read-through TTL cache over opaque byte values.
type Cache interface {
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error)
	Invalidate(ctx context.Context, key string)
	Close()
}

// Stats counts cache effectiveness for tests and debugging.
type Stats struct {
	Hits   int
	Misses int
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	stats   Stats
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemory returns an in-process Cache with a background expiry sweep.
func NewMemory() *memoryCache {
	c := &memoryCache{
		entries: make(map[string]entry),
		stopCh:  make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// GetOrSet returns the cached value when fresh, otherwise runs the loader
// and caches its result for ttl.
func (c *memoryCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	now := time.Now()
	c.mu.Lock()
	if hit, ok := c.entries[key]; ok && hit.expiresAt.After(now) {
		c.stats.Hits++
		c.mu.Unlock()
		return hit.value, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	value, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
	c.mu.Unlock()
	return value, nil
}

// Invalidate drops the key.
func (c *memoryCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Stats returns a snapshot of hit/miss counters.
func (c *memoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *memoryCache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup(time.Now())
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, key)
		}
	}
}

// Close stops the sweep loop.
func (c *memoryCache) Close() {
	c.once.Do(func() {
		close(c.stopCh)
	})
}
