package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/carpool-search/internal/models"
)

// Cache is a tiny in-memory TTL cache for route lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  models.RoutingStats
	ts time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Coordinates) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coordinates) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Get returns the cached stats and true if present and not expired.
func (c *Cache) Get(a, b models.Coordinates) (*models.RoutingStats, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return nil, false
	}
	v := e.v
	return &v, true
}

func (c *Cache) Set(a, b models.Coordinates, v models.RoutingStats) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// CachingClient wraps a Client with the TTL cache.
type CachingClient struct {
	Inner Client
	Cache *Cache
}

func NewCachingClient(inner Client, ttl time.Duration) *CachingClient {
	return &CachingClient{Inner: inner, Cache: NewCache(ttl)}
}

func (c *CachingClient) Route(ctx context.Context, from, to models.Coordinates) (*models.RoutingStats, error) {
	if v, ok := c.Cache.Get(from, to); ok {
		return v, nil
	}
	v, err := c.Inner.Route(ctx, from, to)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(from, to, *v)
	return v, nil
}
