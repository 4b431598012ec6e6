package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// UploadPrefix is the directory (or key prefix) presentations are stored under.
const UploadPrefix = "uploads"

// Uploads stores presentations received by the server until the worker has
// processed them. Keys returned by Put are what the worker's file loader reads.
type Uploads interface {
	Put(ctx context.Context, id string, name string, file io.ReadSeeker) (string, error)
	Delete(ctx context.Context, key string) error
}

// LocalUploads keeps uploads in a directory shared by server and worker.
type LocalUploads struct {
	dir string
}

// NewLocalUploads returns LocalUploads rooted at dir.
func NewLocalUploads(dir string) *LocalUploads {
	if dir == "" {
		dir = UploadPrefix
	}
	return &LocalUploads{dir: dir}
}

// Put writes file to dir/<id><ext of name> and returns that path.
func (u *LocalUploads) Put(ctx context.Context, id string, name string, file io.ReadSeeker) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	key := filepath.Join(u.dir, id+filepath.Ext(name))
	f, err := os.OpenFile(key, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, file); err != nil {
		f.Close()
		os.Remove(key)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(key)
		return "", err
	}
	return key, nil
}

// Delete removes the upload at key.
func (u *LocalUploads) Delete(ctx context.Context, key string) error {
	if err := os.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// S3Uploads keeps uploads in the bucket returned by Bucket.
type S3Uploads struct {
	client ObjectClient
}

// NewS3Uploads returns S3Uploads using client.
func NewS3Uploads(client ObjectClient) *S3Uploads {
	return &S3Uploads{client: client}
}

// Put uploads file as uploads/<id><ext of name>.
func (u *S3Uploads) Put(ctx context.Context, id string, name string, file io.ReadSeeker) (string, error) {
	return PutFile(ctx, u.client, UploadPrefix, name, id, file)
}

// Delete removes the object stored under key.
func (u *S3Uploads) Delete(ctx context.Context, key string) error {
	return DeleteFile(ctx, u.client, key)
}
