// Command migrate manages the board database schema.
//
//	migrate up              apply pending SQL migrations
//	migrate auto            sync tables with AutoMigrate (non-production only)
//	migrate status          print mode, ledger and pending migrations
//	migrate down <version>  revert one applied migration
//	migrate redo <version>  revert then re-apply one migration
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"bbs/internal/config"
	"bbs/internal/database"
	"bbs/internal/middleware"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|auto|status|down|redo> [version]")

func main() {
	if err := run(os.Args[1:]); err != nil {
		middleware.Logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.SetupLogger(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch cmd := strings.ToLower(strings.TrimSpace(args[0])); cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return err
		}
		middleware.Logger.Info("SQL migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return err
		}
		middleware.Logger.Info("AutoMigrate finished")
	case "status":
		return printStatus(ctx, db, cfg)
	case "down", "redo":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate %s <version>", cmd)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return err
		}
		if cmd == "redo" {
			return database.RunMigrations(ctx, db)
		}
	default:
		return errUsage
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}

	middleware.Logger.Info("Schema status",
		slog.String("mode", status.Mode),
		slog.String("env", status.Environment),
		slog.Bool("run_sql", status.WillRunSQL),
		slog.Bool("run_auto", status.WillRunAutoMigrate),
		slog.Int("applied", len(status.Applied)),
		slog.Int("pending", len(status.PendingMigrations)))
	for _, m := range status.PendingMigrations {
		middleware.Logger.Info("Pending migration", slog.String("migration", m.String()))
	}
	if status.Drift != nil {
		middleware.Logger.Warn("Migration ledger drift", slog.String("error", status.Drift.Error()))
	}
	return nil
}
