// Package bootstrap wires the shared runtime used by the server and the CLI tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bbs/internal/cache"
	"bbs/internal/config"
	"bbs/internal/database"
	"bbs/internal/middleware"
	"bbs/internal/models"
	"bbs/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedBoards upserts the default board directory from DEFAULT_BOARDS_FILE.
	SeedBoards bool
}

// InitRuntime connects to DB and Redis, brings the schema up to date and
// optionally seeds the board directory.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if _, err := database.ConnectRead(cfg); err != nil {
		return nil, nil, err
	}

	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevManager(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development board manager: %w", err)
	}

	if opts.SeedBoards {
		specs, err := seed.LoadBoards(cfg.DefaultBoardsFile)
		if err != nil {
			return nil, nil, err
		}
		if err := seed.Boards(db, specs); err != nil {
			return nil, nil, fmt.Errorf("failed to seed default boards: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevManager creates or promotes a board manager account in development.
func ensureDevManager(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapManager {
		return nil
	}

	username := strings.TrimSpace(cfg.DevManagerUsername)
	if username == "" {
		username = "board_manager"
	}
	if cfg.DevManagerPassword == "" {
		return errors.New("DEV_MANAGER_PASSWORD must be set when DEV_BOOTSTRAP_MANAGER is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.DevManagerPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash manager password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var manager models.User
		findErr := tx.Where("username = ?", username).First(&manager).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			manager = models.User{
				Username:       username,
				Password:       string(hashedPassword),
				IsBoardManager: true,
			}
			return tx.Create(&manager).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", manager.ID).Update("is_board_manager", true).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development board manager ensured", "username", username)
	return nil
}
