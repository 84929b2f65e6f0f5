// Package storage persists uploaded files to local disk or Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"harfzaar/internal/config"
)

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Store writes and removes objects addressed by slash-separated keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New returns a GCSStore when a bucket is configured, otherwise a LocalStore.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.GCSBucket != "" {
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCDNDomain)
	}
	return NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL), nil
}

// cleanKey normalises key and rejects traversal outside the root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
