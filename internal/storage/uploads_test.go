package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestLocalUploads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u := NewLocalUploads(dir)
	ctx := context.Background()

	key, err := u.Put(ctx, "abc123", "Lecture 1.pptx", strings.NewReader("deck"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if key != filepath.Join(dir, "abc123.pptx") {
		t.Fatalf("unexpected key %s", key)
	}
	data, err := os.ReadFile(key)
	if err != nil || string(data) != "deck" {
		t.Fatalf("ReadFile() = %q, %v", data, err)
	}

	if _, err := u.Put(ctx, "abc123", "other.pptx", strings.NewReader("x")); err == nil {
		t.Fatal("expected an error for a duplicate id")
	}

	if err := u.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := u.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() of missing upload error = %v", err)
	}
}

type fakeObjects struct {
	put     map[string]string
	deleted []string
	err     error
}

func (f *fakeObjects) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(params.Body)
	f.put[*params.Key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Uploads(t *testing.T) {
	objects := &fakeObjects{put: map[string]string{}}
	u := NewS3Uploads(objects)
	ctx := context.Background()

	key, err := u.Put(ctx, "abc123", "deck.pptx", strings.NewReader("deck"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if key != "uploads/abc123.pptx" || objects.put[key] != "deck" {
		t.Fatalf("unexpected upload %s: %v", key, objects.put)
	}

	if err := u.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != key {
		t.Fatalf("unexpected deletes %v", objects.deleted)
	}

	objects.err = errors.New("access denied")
	if _, err := u.Put(ctx, "x", "y.pptx", strings.NewReader("")); err == nil {
		t.Fatal("expected an error")
	}
}
