package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bbs/internal/config"
	"bbs/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan is the set of schema steps a given driver, mode and env allow.
type schemaPlan struct {
	Mode        string
	SQL         bool
	AutoMigrate bool
}

// SchemaStatus is what `migrate status` prints.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	Applied            []AppliedMigration
	PendingMigrations  []Migration
	// Drift is non-nil when the ledger disagrees with the embedded migrations.
	Drift error
}

func protectedEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// planSchema resolves DB_SCHEMA_MODE. The embedded SQL is written for
// PostgreSQL, so a SQLite database is always built with AutoMigrate.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	plan := schemaPlan{Mode: mode}

	switch mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeHybrid:
		plan.SQL = true
		plan.AutoMigrate = !protectedEnv(cfg.Env)
	case SchemaModeAuto:
		if protectedEnv(cfg.Env) && cfg.DBDriver != "sqlite" {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		plan.AutoMigrate = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}

	if cfg.DBDriver == "sqlite" {
		plan.SQL, plan.AutoMigrate = false, true
	}
	return plan, nil
}

// ApplySchema brings the board schema up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.AutoMigrate {
		middleware.Logger.Info("Syncing board schema with AutoMigrate",
			slog.String("mode", plan.Mode), slog.String("driver", cfg.DBDriver))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.Mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.SQL,
		WillRunAutoMigrate: plan.AutoMigrate,
	}
	if !plan.SQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).Applied(ctx)
	if err != nil {
		return nil, err
	}
	status.Applied = applied
	status.Drift = checkLedger(applied, GetMigrations())

	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	for _, m := range GetMigrations() {
		if !done[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
