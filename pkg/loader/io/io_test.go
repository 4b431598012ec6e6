package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestIOFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := NewIOFileLoader()
	data, err := l.Load(context.Background(), path)
	if err != nil || string(data) != "v1" {
		t.Fatalf("unexpected load %q %v", data, err)
	}

	os.WriteFile(path, []byte("v2"), 0o644)
	data, _ = l.Load(context.Background(), path)
	if string(data) != "v1" {
		t.Fatalf("expected cached content, got %q", data)
	}

	l.Forget(path)
	data, _ = l.Load(context.Background(), path)
	if string(data) != "v2" {
		t.Fatalf("expected fresh content after Forget, got %q", data)
	}

	if _, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
