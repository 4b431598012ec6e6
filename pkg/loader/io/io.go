package io

import (
	"context"
	"os"

	"github.com/slidescribe/backend/pkg/loader"
)

// IOFileLoader loads files directly from the local filesystem with caching.
type IOFileLoader struct {
	cache *loader.Cache[[]byte]
}

// NewIOFileLoader creates a new filesystem-based file loader.
func NewIOFileLoader() *IOFileLoader {
	return &IOFileLoader{
		cache: loader.NewCache[[]byte](),
	}
}

// Load reads the file content from the filesystem. Results are cached.
func (l *IOFileLoader) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.cache.Get(path, func() ([]byte, error) {
		return os.ReadFile(path)
	})
}

// Forget drops path from the cache, e.g. once its upload has been processed.
func (l *IOFileLoader) Forget(path string) {
	l.cache.Forget(path)
}
