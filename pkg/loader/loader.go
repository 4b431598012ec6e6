// Package loader retrieves uploaded presentations from where the API stored
// them. Implementations live in the sub packages (io, s3) and are combined
// with the extractor by the pptx loader.
package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FileLoader defines the interface for loading the raw bytes of a file.
// Implementations may load files from disk, cloud storage, or other sources.
type FileLoader interface {
	Load(ctx context.Context, path string) ([]byte, error)
}

// Cache keeps loaded values by key. Concurrent Get calls for a key that is not
// cached yet share a single load.
type Cache[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	group singleflight.Group
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{
		items: make(map[string]T),
	}
}

func (c *Cache[T]) lookup(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// Get returns the cached value for key or calls load to produce it. Failed
// loads are not cached.
func (c *Cache[T]) Get(key string, load func() (T, error)) (T, error) {
	if cached, ok := c.lookup(key); ok {
		return cached, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.lookup(key); ok {
			return cached, nil
		}

		v, err := load()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.items[key] = v
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result.(T), nil
}

// Forget drops key from the cache.
func (c *Cache[T]) Forget(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// size returns the number of cached values.
func (c *Cache[T]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
