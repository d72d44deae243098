// Package minio stores business media in an S3-compatible bucket.
package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kailas-cloud/directory/internal/domain"
)

// Config holds object storage settings. An empty Endpoint disables storage.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Storage wraps a MinIO client bound to one bucket. A disabled Storage
// returns domain.ErrStorageDisabled from every operation.
type Storage struct {
	mc     *minio.Client
	bucket string
}

// New creates a Storage. It does not contact the server.
func New(cfg Config) (*Storage, error) {
	if cfg.Endpoint == "" {
		return &Storage{}, nil
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Storage{mc: mc, bucket: cfg.Bucket}, nil
}

// Enabled reports whether storage is configured.
func (s *Storage) Enabled() bool { return s.mc != nil }

// EnsureBucket creates the bucket if it does not exist.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	if !s.Enabled() {
		return domain.ErrStorageDisabled
	}
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads an object.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if !s.Enabled() {
		return domain.ErrStorageDisabled
	}
	_, err := s.mc.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Remove deletes an object. Missing objects are not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if !s.Enabled() {
		return domain.ErrStorageDisabled
	}
	if err := s.mc.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return domain.ErrStorageDisabled
	}
	if _, err := s.mc.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("ping object storage: %w", err)
	}
	return nil
}
