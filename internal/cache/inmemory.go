package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// InMemoryCache implements Cache on top of go-cache
type InMemoryCache struct {
	cache *gocache.Cache
}

func NewInMemoryCache(defaultExpiration time.Duration) *InMemoryCache {
	if defaultExpiration <= 0 {
		defaultExpiration = DefaultTTL
	}
	return &InMemoryCache{
		cache: gocache.New(defaultExpiration, 2*defaultExpiration),
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Set stores value; an expiration of 0 uses the cache default
func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) Flush(_ context.Context) {
	c.cache.Flush()
}

// NoopCache never stores anything. Used when caching is disabled.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (interface{}, bool) { return nil, false }
func (NoopCache) Set(context.Context, string, interface{}, time.Duration) {}
func (NoopCache) Delete(context.Context, string) {}
func (NoopCache) Flush(context.Context) {}
