// Package bootstrap wires the process-wide runtime shared by the server and
// the maintenance commands.
package bootstrap

import (
	"context"
	"fmt"

	"foodgram/internal/cache"
	"foodgram/internal/config"
	"foodgram/internal/database"
	"foodgram/internal/middleware"
	"foodgram/internal/observability"
	"foodgram/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// LoadFixtures upserts the ingredient and tag reference data.
	LoadFixtures bool
}

// InitRuntime connects to DB and Redis and optionally loads fixtures.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; a nil client disables caching and token revocation.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.LoadFixtures {
		if err := LoadFixtures(ctx, cfg, db); err != nil {
			return nil, nil, err
		}
	}

	return db, r, nil
}

// LoadFixtures upserts the configured fixture files into db.
func LoadFixtures(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	s, err := seed.NewSeeder(db, seed.Options{SkipBcrypt: true})
	if err != nil {
		return err
	}
	if err := s.LoadFixtures(ctx, cfg.IngredientsFile, cfg.TagsFile); err != nil {
		return fmt.Errorf("failed to load fixtures: %w", err)
	}
	return nil
}

// InitTracing configures the OpenTelemetry provider from cfg.
func InitTracing(cfg *config.Config, serviceName string) (func(context.Context) error, error) {
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.TracingOTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}
	if cfg.TracingEnabled {
		middleware.Logger.Info("tracing enabled", "exporter", cfg.TracingExporter)
	}
	return shutdown, nil
}
