package repo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/miradorstack/mirador-coverage/internal/cache"
)

type recordedEntry struct {
	value []byte
	ttl   time.Duration
}

// recordingCache keeps entries in memory and remembers the TTL each key was
// written with. readErr, when set, fails every Get.
type recordingCache struct {
	mu      sync.Mutex
	entries map[string]recordedEntry
	readErr error
}

func newStubCache() *recordingCache {
	return &recordingCache{entries: make(map[string]recordedEntry)}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	entry, ok := c.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

func (c *recordingCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = recordedEntry{value: append([]byte(nil), value...), ttl: ttl}
	return nil
}

func (c *recordingCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return errors.New("no such key")
	}
	delete(c.entries, key)
	return nil
}

func (c *recordingCache) Close() error { return nil }

func (c *recordingCache) ttlOf(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry.ttl, ok
}
