package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects under a directory served as static files.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore returns a store rooted at dir whose URLs start with baseURL.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{root: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(_ context.Context, key, _ string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	p := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

// Delete removes the object. A missing object is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(k)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}
