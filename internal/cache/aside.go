package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"foodgram/internal/middleware"
	"foodgram/internal/observability"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// GetJSON looks key up and unmarshals it into dest.
// Returns (true, nil) on a hit and (false, nil) on a miss or when no client is configured.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it under key with ttl.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside serves dest from Redis when possible, otherwise calls fetch (which
// must populate dest) and stores the result. Cache failures never fail the call.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	if found {
		observability.CacheLookups.WithLabelValues(keyFamily(key), "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(keyFamily(key), "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// keyFamily trims a key to its prefix so metric labels stay bounded.
func keyFamily(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
