package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryProvider implements Provider on an in-process go-cache store. Expired
// entries are swept by the go-cache janitor.
type MemoryProvider struct {
	store *gocache.Cache
}

// NewMemoryProvider creates a Provider whose janitor runs every cleanupInterval.
func NewMemoryProvider(cleanupInterval time.Duration) *MemoryProvider {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &MemoryProvider{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent or expired.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := p.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), data...), nil
}

// Set stores bytes with the provided TTL. A non-positive TTL never expires.
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.store.Set(key, append([]byte(nil), value...), expiration(ttl))
	return nil
}

// Del removes a key.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.store.Delete(key)
	return nil
}

// Close flushes the store.
func (p *MemoryProvider) Close() error {
	p.store.Flush()
	return nil
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}
