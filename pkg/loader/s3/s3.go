package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/slidescribe/backend/pkg/loader"
)

// ObjectGetter is the part of *s3.Client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3FileLoader is a FileLoader implementation that loads file contents from an
// S3 bucket. Paths are object keys.
type S3FileLoader struct {
	bucket string
	client ObjectGetter
	cache  *loader.Cache[[]byte]
}

// NewS3FileLoaderWithClient creates a new S3FileLoader using an existing
// client, usually the one built by storage.NewS3Client.
func NewS3FileLoaderWithClient(bucket string, client ObjectGetter) *S3FileLoader {
	return &S3FileLoader{
		bucket: bucket,
		client: client,
		cache:  loader.NewCache[[]byte](),
	}
}

// Load retrieves the object stored under key. Results are cached.
func (l *S3FileLoader) Load(ctx context.Context, key string) ([]byte, error) {
	return l.cache.Get(key, func() ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

// Forget drops key from the cache.
func (l *S3FileLoader) Forget(key string) {
	l.cache.Forget(key)
}
