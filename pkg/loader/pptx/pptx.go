package pptx

import (
	"context"

	"github.com/slidescribe/backend/pkg/loader"
	extract "github.com/slidescribe/backend/pkg/pptx"
)

// PPTXLoader loads PowerPoint files through a FileLoader and extracts their
// slides. Extraction results are cached per path and scope.
type PPTXLoader struct {
	loader    loader.FileLoader
	extractor *extract.Extractor
	cache     *loader.Cache[*extract.Result]
}

// NewPPTXLoader creates a PowerPoint loader on top of a file loader.
func NewPPTXLoader(fileLoader loader.FileLoader, extractor *extract.Extractor) *PPTXLoader {
	return &PPTXLoader{
		loader:    fileLoader,
		extractor: extractor,
		cache:     loader.NewCache[*extract.Result](),
	}
}

func cacheKey(path, scope string) string {
	return scope + "\x00" + path
}

// Result loads the file at path and returns its extraction result. Images are
// written to the part of the media store reserved for scope, usually the job id.
func (l *PPTXLoader) Result(ctx context.Context, path, scope string) (*extract.Result, error) {
	return l.cache.Get(cacheKey(path, scope), func() (*extract.Result, error) {
		extractor, err := l.extractor.Scope(scope)
		if err != nil {
			return nil, err
		}

		content, err := l.loader.Load(ctx, path)
		if err != nil {
			return nil, err
		}

		return extractor.RunBytes(ctx, content)
	})
}

// Slides returns the slides of the presentation at path.
func (l *PPTXLoader) Slides(ctx context.Context, path, scope string) ([]extract.Slide, error) {
	res, err := l.Result(ctx, path, scope)
	if err != nil {
		return nil, err
	}
	return res.Slides, nil
}

// Forget drops the cached result of path in scope, and the cached file when
// the underlying loader caches too.
func (l *PPTXLoader) Forget(path, scope string) {
	l.cache.Forget(cacheKey(path, scope))
	if f, ok := l.loader.(interface{ Forget(string) }); ok {
		f.Forget(path)
	}
}
