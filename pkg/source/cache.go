package source

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedProvider decorates a Provider with in-memory caching. Cached values
// live in process memory only; nothing is persisted.
type CachedProvider struct {
	inner Provider
	cache *cache.Cache
}

// NewCachedProvider creates a new cached provider.
// defaultTTL is the expiration time for cached secrets.
func NewCachedProvider(inner Provider, defaultTTL time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: cache.New(defaultTTL, defaultTTL*2),
	}
}

// Get retrieves a secret from the cache or delegates to the inner provider.
func (p *CachedProvider) Get(ctx context.Context, path string) (string, error) {
	if val, found := p.cache.Get(path); found {
		if str, ok := val.(string); ok {
			return str, nil
		}
	}

	val, err := p.inner.Get(ctx, path)
	if err != nil {
		return "", err
	}

	p.cache.Set(path, val, cache.DefaultExpiration)
	return val, nil
}

// Flush drops every cached value, forcing the next Get of each path to hit
// the inner provider.
func (p *CachedProvider) Flush() {
	p.cache.Flush()
}

// Close flushes the cache and closes the inner provider.
func (p *CachedProvider) Close() error {
	p.cache.Flush()
	return p.inner.Close()
}
