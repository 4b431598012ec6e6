package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store persists normalized images. Implementations never overwrite an object
// that already exists under a name.
type Store interface {
	// Save writes data under name and returns a reference to it. When an object
	// with that name already exists it is left untouched, its reference is
	// returned and created is false.
	Save(ctx context.Context, name string, data []byte) (ref string, created bool, err error)
	// Read returns the bytes behind a reference returned by Save.
	Read(ctx context.Context, ref string) ([]byte, error)
	// Delete removes the object behind ref. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref string) error
}

// Scoper is implemented by stores that can hand out a namespace of their own
// to every run, so equal output names of different runs never meet.
type Scoper interface {
	Scope(name string) Store
}

// Scoped returns the part of store reserved for scope. Stores that are not
// Scopers get the scope prepended to every name.
func Scoped(store Store, scope string) (Store, error) {
	if err := ValidateScope(scope); err != nil {
		return nil, err
	}
	if s, ok := store.(Scoper); ok {
		return s.Scope(scope), nil
	}
	return &prefixStore{Store: store, prefix: scope + "_"}, nil
}

// ValidateScope reports whether scope can name a namespace: a single path
// segment other than "." and "..".
func ValidateScope(scope string) error {
	if scope == "" || scope == "." || scope == ".." || strings.ContainsAny(scope, `/\`) {
		return fmt.Errorf("invalid media scope %q", scope)
	}
	return nil
}

type prefixStore struct {
	Store
	prefix string
}

func (s *prefixStore) Save(ctx context.Context, name string, data []byte) (string, bool, error) {
	return s.Store.Save(ctx, s.prefix+name, data)
}

// DefaultOutputDir is where FileStore writes when no directory is given.
const DefaultOutputDir = "output/images"

// FileStore stores images as files in a local directory, creating it on demand.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultOutputDir
	}
	return &FileStore{dir: dir}
}

// Dir returns the directory images are written to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Scope returns a FileStore writing to the subdirectory name of s.
func (s *FileStore) Scope(name string) Store {
	return NewFileStore(filepath.Join(s.dir, name))
}

// Save writes data to dir/name unless that file already exists.
func (s *FileStore) Save(ctx context.Context, name string, data []byte) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if name == "" || name != filepath.Base(name) {
		return "", false, fmt.Errorf("invalid media name %q", name)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create output dir: %w", err)
	}

	ref := filepath.Join(s.dir, name)
	f, err := os.OpenFile(ref, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return ref, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("create %s: %w", ref, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(ref)
		return "", false, fmt.Errorf("write %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(ref)
		return "", false, fmt.Errorf("close %s: %w", ref, err)
	}

	return ref, true, nil
}

// Read returns the content of the file at ref.
func (s *FileStore) Read(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(ref)
}

// Delete removes the file at ref.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
