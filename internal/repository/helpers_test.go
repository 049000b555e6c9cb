package repository

import (
	"testing"
	"time"

	"bbs/internal/database"
	"bbs/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Password: "hashed"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedBoard(t *testing.T, db *gorm.DB, code string) *models.Board {
	t.Helper()
	b := &models.Board{Code: code, Title: code + " board"}
	require.NoError(t, db.Create(b).Error)
	return b
}

func seedPost(t *testing.T, db *gorm.DB, board *models.Board, author *models.User, title, content string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		BoardID:   board.ID,
		UserID:    author.ID,
		Title:     title,
		Content:   content,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, db.Omit("User", "Board", "LastEditor").Create(p).Error)
	return p
}
