package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"bbs/internal/middleware"

	"gorm.io/gorm"
)

// AppliedMigration is one row of the schema_migrations ledger.
type AppliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// MigrationStore records which embedded migrations a database has run.
type MigrationStore interface {
	Applied(ctx context.Context) ([]AppliedMigration, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

type migrationStore struct {
	db *gorm.DB
}

func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

// Checksum fingerprints the up script so edits to shipped migrations are caught.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

func (s *migrationStore) Applied(ctx context.Context) ([]AppliedMigration, error) {
	var rows []AppliedMigration
	err := s.db.WithContext(ctx).Order("version ASC").Find(&rows).Error
	if err != nil {
		if isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// Apply runs the up script and records it in one transaction.
func (s *migrationStore) Apply(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply migration %s: %w", m.String(), err)
		}
		return tx.Create(&AppliedMigration{Version: m.Version, Name: m.Name, Checksum: m.Checksum()}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration applied", slog.String("migration", m.String()))
	return nil
}

// Revert runs the down script and drops the ledger row in one transaction.
func (s *migrationStore) Revert(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("revert migration %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", m.Version).Delete(&AppliedMigration{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}

const ensureLedgerSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// RunMigrations applies every embedded migration the database has not run yet.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(ensureLedgerSQL).Error; err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return runPending(ctx, NewMigrationStore(db), migrations)
}

func runPending(ctx context.Context, store MigrationStore, registered []Migration) error {
	applied, err := store.Applied(ctx)
	if err != nil {
		return err
	}
	if err := checkLedger(applied, registered); err != nil {
		return err
	}

	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	for _, m := range registered {
		if done[m.Version] {
			continue
		}
		middleware.Logger.Info("Applying migration", slog.String("migration", m.String()))
		if err := store.Apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// checkLedger refuses to migrate a database that ran versions this binary
// does not know, or whose recorded scripts differ from the embedded ones.
func checkLedger(applied []AppliedMigration, registered []Migration) error {
	known := make(map[int]Migration, len(registered))
	for _, m := range registered {
		known[m.Version] = m
	}

	var unknown, drifted []string
	for _, a := range applied {
		m, ok := known[a.Version]
		switch {
		case !ok:
			unknown = append(unknown, fmt.Sprintf("%06d", a.Version))
		case a.Checksum != "" && a.Checksum != m.Checksum():
			drifted = append(drifted, m.String())
		}
	}

	var errs []error
	if len(unknown) > 0 {
		sort.Strings(unknown)
		errs = append(errs, fmt.Errorf("schema_migrations contains versions not present in code: %s",
			strings.Join(unknown, ", ")))
	}
	if len(drifted) > 0 {
		errs = append(errs, fmt.Errorf("applied migrations were edited after release: %s",
			strings.Join(drifted, ", ")))
	}
	return errors.Join(errs...)
}

// RollbackMigration reverts one applied migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	store := NewMigrationStore(db)
	applied, err := store.Applied(ctx)
	if err != nil {
		return err
	}
	for _, a := range applied {
		if a.Version == version {
			middleware.Logger.Info("Rolling back migration", slog.String("migration", m.String()))
			return store.Revert(ctx, *m)
		}
	}
	return fmt.Errorf("migration %d has not been applied", version)
}
