// Package storage persists uploaded media and maps stored objects to public URLs.
package storage

import (
	"context"
	"fmt"
	"strings"

	"foodgram/internal/config"
)

// MediaStore writes and removes media objects addressed by a relative key
// such as "recipes/ab/abcdef.jpg".
type MediaStore interface {
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object behind a URL previously returned by Put.
	// URLs that do not belong to the store are ignored.
	Delete(ctx context.Context, url string) error
	Backend() string
}

// New builds the store selected by MEDIA_BACKEND.
func New(ctx context.Context, cfg *config.Config) (MediaStore, error) {
	switch strings.ToLower(cfg.MediaBackend) {
	case "", "local":
		return NewLocalStore(cfg.MediaRoot, cfg.PublicBaseURL+cfg.MediaURL), nil
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicURL:       cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("unsupported MEDIA_BACKEND %q", cfg.MediaBackend)
	}
}

// keyFromURL strips base from url. ok is false for foreign URLs.
func keyFromURL(base, url string) (string, bool) {
	base = strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	key := strings.TrimPrefix(url, base)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
