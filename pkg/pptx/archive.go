package pptx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

const (
	// DefaultMaxEntrySize caps the decompressed size of a single entry.
	DefaultMaxEntrySize int64 = 256 << 20
	// DefaultMaxTotalSize caps the decompressed size of the whole package.
	DefaultMaxTotalSize int64 = 1 << 30
)

// ArchiveLimits bounds how much data Open is willing to decompress.
type ArchiveLimits struct {
	MaxEntrySize int64
	MaxTotalSize int64
}

func (l ArchiveLimits) normalize() ArchiveLimits {
	if l.MaxEntrySize <= 0 {
		l.MaxEntrySize = DefaultMaxEntrySize
	}
	if l.MaxTotalSize <= 0 {
		l.MaxTotalSize = DefaultMaxTotalSize
	}
	return l
}

// Archive is an immutable in-memory index of the entries of a presentation
// package. It is safe for concurrent reads.
type Archive struct {
	entries map[string][]byte
	names   []string
}

// Open decompresses every entry of a ZIP-structured package into memory using
// the default size limits.
func Open(data []byte) (*Archive, error) {
	return OpenWithLimits(data, ArchiveLimits{})
}

// OpenFile reads the package at path and opens it.
func OpenFile(path string) (*Archive, error) {
	return openFileWithLimits(path, ArchiveLimits{})
}

func openFileWithLimits(path string, limits ArchiveLimits) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return OpenWithLimits(data, limits)
}

// OpenWithLimits is Open with explicit decompression limits.
func OpenWithLimits(data []byte, limits ArchiveLimits) (*Archive, error) {
	limits = limits.normalize()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &CorruptArchiveError{Reason: "not a zip container", Err: err}
	}

	a := &Archive{
		entries: make(map[string][]byte, len(zr.File)),
		names:   make([]string, 0, len(zr.File)),
	}

	var total int64
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.UncompressedSize64 > uint64(limits.MaxEntrySize) {
			return nil, &CorruptArchiveError{
				Reason: fmt.Sprintf("entry %s too large: %d bytes", f.Name, f.UncompressedSize64),
			}
		}

		content, err := readZipEntry(f, limits.MaxEntrySize)
		if err != nil {
			return nil, &CorruptArchiveError{Reason: "read entry " + f.Name, Err: err}
		}

		total += int64(len(content))
		if total > limits.MaxTotalSize {
			return nil, &CorruptArchiveError{
				Reason: fmt.Sprintf("package exceeds %d decompressed bytes", limits.MaxTotalSize),
			}
		}

		name := cleanEntryName(f.Name)
		if _, dup := a.entries[name]; !dup {
			a.names = append(a.names, name)
		}
		a.entries[name] = content
	}

	sort.Strings(a.names)

	return a, nil
}

func readZipEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// the header size can lie, so the reader is bounded as well
	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, errors.New("entry exceeds size limit")
	}
	return content, nil
}

func cleanEntryName(name string) string {
	return strings.TrimPrefix(name, "/")
}

// ListEntries returns the sorted names of all entries matching pattern. A nil
// pattern matches every entry.
func (a *Archive) ListEntries(pattern *regexp.Regexp) []string {
	out := make([]string, 0)
	for _, name := range a.names {
		if pattern == nil || pattern.MatchString(name) {
			out = append(out, name)
		}
	}
	return out
}

// has reports whether path names an entry.
func (a *Archive) has(path string) bool {
	_, ok := a.entries[cleanEntryName(path)]
	return ok
}

// ReadBytes returns the content of the entry at path.
func (a *Archive) ReadBytes(path string) ([]byte, error) {
	content, ok := a.entries[cleanEntryName(path)]
	if !ok {
		return nil, &EntryNotFoundError{Path: path}
	}
	return content, nil
}

// ReadText returns the content of the entry at path as a string.
func (a *Archive) ReadText(path string) (string, error) {
	content, err := a.ReadBytes(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// entryCount returns the number of file entries in the archive.
func (a *Archive) entryCount() int {
	return len(a.names)
}
