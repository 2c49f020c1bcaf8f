package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"foodgram/internal/observability"
)

// LocalStore keeps media on the local filesystem under root and serves it
// from baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore returns a LocalStore rooted at root.
func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Backend() string { return "local" }

// Root is the directory media is written to.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(ctx context.Context, key string, data []byte, _ string) (url string, err error) {
	_, span := observability.TraceStorageOperation(ctx, s.Backend(), "put")
	defer func() { observability.EndSpan(span, err) }()

	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write media: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize media: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStore) Delete(ctx context.Context, url string) (err error) {
	key, ok := keyFromURL(s.baseURL, url)
	if !ok {
		return nil
	}
	_, span := observability.TraceStorageOperation(ctx, s.Backend(), "delete")
	defer func() { observability.EndSpan(span, err) }()

	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove media: %w", err)
	}
	return nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
