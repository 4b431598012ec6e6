// Package s3 stores normalized images in an S3 compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/slidescribe/backend/pkg/media"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ObjectAPI is the part of *s3.Client the store needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements media.Store on top of a bucket. References are object keys.
type Store struct {
	client ObjectAPI
	bucket string
	prefix string
}

type NewStoreParams struct {
	Client ObjectAPI
	Bucket string
	Prefix string
}

func NewStore(params NewStoreParams) *Store {
	return &Store{
		client: params.Client,
		bucket: params.Bucket,
		prefix: params.Prefix,
	}
}

// Key returns the object key an image with name is stored under.
func (s *Store) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Scope returns a store on the same bucket whose keys live below name.
func (s *Store) Scope(name string) media.Store {
	return &Store{
		client: s.client,
		bucket: s.bucket,
		prefix: path.Join(s.prefix, name),
	}
}

// Save uploads data with a conditional put, so an existing object is never
// replaced.
func (s *Store) Save(ctx context.Context, name string, data []byte) (string, bool, error) {
	key := s.Key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return key, false, nil
		}
		return "", false, fmt.Errorf("failed to upload image to S3: %w", err)
	}

	return key, true, nil
}

func (s *Store) Read(ctx context.Context, ref string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get image from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image contents: %w", err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image from S3: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
