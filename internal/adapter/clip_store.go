package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/packing-audit/internal/config"
)

// ErrStorageNotConfigured is returned when no clip bucket is configured
var ErrStorageNotConfigured = errors.New("clip storage is not configured")

// ClipStore issues time-limited download URLs for stored clip media
type ClipStore struct {
	client *minio.Client
	bucket string
}

// NewClipStore creates an S3 compatible store client. Presigning is local,
// so no request is made to the endpoint here.
func NewClipStore(cfg *config.StorageConfig) (*ClipStore, error) {
	if cfg.Bucket == "" {
		return nil, ErrStorageNotConfigured
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &ClipStore{client: client, bucket: cfg.Bucket}, nil
}

// objectKey turns a stored clip path into a key inside the bucket.
// Paths may be recorded as "gs://bucket/key", "/key" or "key".
func (s *ClipStore) objectKey(storagePath string) string {
	key := storagePath
	if u, err := url.Parse(storagePath); err == nil && u.Scheme != "" && u.Host != "" {
		key = u.Path
		if u.Host != s.bucket {
			key = u.Host + "/" + strings.TrimPrefix(key, "/")
		}
	}
	return strings.TrimPrefix(key, "/")
}

// SignedURL returns a GET URL for the clip valid for ttl
func (s *ClipStore) SignedURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error) {
	key := s.objectKey(storagePath)
	if key == "" {
		return "", fmt.Errorf("clip has no storage path")
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign clip %s: %w", key, err)
	}
	return u.String(), nil
}
