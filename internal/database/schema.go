package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"foodgram/internal/config"
	"foodgram/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes select who owns DDL: the embedded SQL migrations, GORM
// AutoMigrate, or both (SQL first, AutoMigrate outside production).
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// recipeTagsTable is the many2many join behind Recipe.Tags. It has no model
// of its own, so PersistentModels does not name it.
const recipeTagsTable = "recipe_tags"

// TableStatus reports one foodgram table.
type TableStatus struct {
	Name   string
	Exists bool
	Rows   int64
}

type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	Tables             []TableStatus
}

// MissingTables names the tables the API needs that do not exist yet.
func (s *SchemaStatus) MissingTables() []string {
	var missing []string
	for _, t := range s.Tables {
		if !t.Exists {
			missing = append(missing, t.Name)
		}
	}
	return missing
}

type schemaPlan struct {
	runSQL  bool
	runAuto bool
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	mode := normalizedSchemaMode(cfg)
	strict := cfg.IsProduction() || isStagingEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return schemaPlan{runSQL: true}, nil
	case SchemaModeAuto:
		if strict && !cfg.DBAutoMigrateAllowDestructive {
			return schemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return schemaPlan{runAuto: true}, nil
	case SchemaModeHybrid:
		return schemaPlan{runSQL: true, runAuto: !strict}, nil
	default:
		return schemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	plan, err := planSchema(cfg)
	return plan.runSQL, plan.runAuto, err
}

func isStagingEnv(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "staging" || e == "stage"
}

func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

func runAutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// schemaTables lists every table the API reads, join tables included.
func schemaTables(db *gorm.DB) ([]string, error) {
	models := PersistentModels()
	tables := make([]string, 0, len(models)+1)
	for _, model := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse %T: %w", model, err)
		}
		tables = append(tables, stmt.Schema.Table)
	}
	return append(tables, recipeTagsTable), nil
}

func inspectTables(ctx context.Context, db *gorm.DB) ([]TableStatus, error) {
	names, err := schemaTables(db)
	if err != nil {
		return nil, err
	}
	migrator := db.WithContext(ctx).Migrator()
	out := make([]TableStatus, 0, len(names))
	for _, name := range names {
		t := TableStatus{Name: name, Exists: migrator.HasTable(name)}
		if t.Exists {
			if err := db.WithContext(ctx).Table(name).Count(&t.Rows).Error; err != nil {
				return nil, fmt.Errorf("count %s: %w", name, err)
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// ApplySchema runs the configured schema steps and then checks that every
// table the API reads exists.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}
	mode := normalizedSchemaMode(cfg)

	if plan.runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if plan.runAuto {
		if mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before production deployment")
		}
		middleware.Logger.Info("running GORM AutoMigrate", slog.String("mode", mode), slog.String("env", cfg.Env))
		if err := runAutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	tables, err := inspectTables(ctx, db)
	if err != nil {
		return err
	}
	status := SchemaStatus{Tables: tables}
	if missing := status.MissingTables(); len(missing) > 0 {
		return fmt.Errorf("schema incomplete after %s mode, missing tables: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

// GetSchemaStatus reports the schema plan, migration state and per-table
// row counts without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         plan.runSQL,
		WillRunAutoMigrate: plan.runAuto,
	}

	if status.Tables, err = inspectTables(ctx, db); err != nil {
		return nil, err
	}

	if !plan.runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations() {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}
