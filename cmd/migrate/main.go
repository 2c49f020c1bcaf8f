// Command migrate applies, inspects and rolls back the Foodgram schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"foodgram/internal/bootstrap"
	"foodgram/internal/config"
	"foodgram/internal/database"
	"foodgram/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up|auto|status|fixtures|down> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	logger := middleware.Logger.With("command", "migrate")

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		logger.Info("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		logger.Info("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		logger.Info("schema status",
			"mode", status.Mode,
			"env", status.Environment,
			"run_sql", status.WillRunSQL,
			"run_auto", status.WillRunAutoMigrate,
			"applied", len(status.AppliedVersions),
			"pending", len(status.PendingMigrations),
		)
		for _, m := range status.PendingMigrations {
			logger.Info("pending migration", "version", m.Version, "name", m.Name)
		}
		for _, table := range status.Tables {
			logger.Info("table", "name", table.Name, "exists", table.Exists, "rows", table.Rows)
		}
	case "fixtures":
		if err := bootstrap.LoadFixtures(ctx, cfg, db); err != nil {
			return err
		}
	case "down":
		if flag.NArg() < 2 {
			return fmt.Errorf("usage: migrate down <version>")
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		logger.Info("rolled back migration", "version", version)
	default:
		return usage()
	}

	return nil
}
