package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a byte-oriented TTL cache shared by the in-process and Redis
// implementations.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache is an in-process Store. Expired entries are dropped on read, and
// Set sweeps the whole map at most once per default TTL.
type Cache struct {
	mu         sync.RWMutex
	defaultTTL time.Duration
	m          map[string]entry
	now        func() time.Time
	lastSweep  time.Time
}

type entry struct {
	val []byte
	exp time.Time
}

func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Second
	}

	return &Cache{
		defaultTTL: defaultTTL,
		m:          make(map[string]entry),
		now:        time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if now.After(e.exp) {
		c.mu.Lock()
		// re-check: a concurrent Set may have refreshed the entry
		if cur, ok := c.m[key]; ok && now.After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return e.val, true, nil
}

// Set stores val for ttl; a non-positive ttl uses the cache default.
func (c *Cache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()

	c.mu.Lock()
	c.sweepLocked(now)
	c.m[key] = entry{val: val, exp: now.Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.defaultTTL {
		return
	}
	c.lastSweep = now

	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
		}
	}
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
