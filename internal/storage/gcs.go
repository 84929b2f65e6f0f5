package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore writes objects to a Google Cloud Storage bucket.
type GCSStore struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

// NewGCSStore builds a client from application default credentials.
// When cdnDomain is set, URLs point at it instead of storage.googleapis.com.
func NewGCSStore(ctx context.Context, bucket, cdnDomain string, opts ...option.ClientOption) (*GCSStore, error) {
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, cdnDomain: strings.TrimRight(cdnDomain, "/")}, nil
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	w := s.client.Bucket(s.bucket).Object(k).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s: %w", k, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", k, err)
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(k).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSStore) URL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.cdnDomain != "" {
		if strings.HasPrefix(s.cdnDomain, "http://") || strings.HasPrefix(s.cdnDomain, "https://") {
			return s.cdnDomain + "/" + key
		}
		return "https://" + s.cdnDomain + "/" + key
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
