package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"bbs/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestBoardRepository_GetByCode(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBoardRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		code         string
		mockBehavior func()
		wantTitle    string
		wantCode     string
	}{
		{
			name: "Success",
			code: "free",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "boards" WHERE code = $1 ORDER BY "boards"."id" LIMIT $2`)).
					WithArgs("free", 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "code", "title"}).AddRow(1, "free", "Free board"))
			},
			wantTitle: "Free board",
		},
		{
			name: "Not Found",
			code: "nope",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "boards" WHERE code = $1 ORDER BY "boards"."id" LIMIT $2`)).
					WithArgs("nope", 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			board, err := repo.GetByCode(ctx, tt.code)
			if tt.wantCode != "" {
				assert.True(t, models.HasCode(err, tt.wantCode))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantTitle, board.Title)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBoardRepository_CreateDuplicateCode(t *testing.T) {
	db := setupSQLite(t)
	repo := NewBoardRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Board{Code: "free", Title: "Free"}))
	err := repo.Create(ctx, &models.Board{Code: "free", Title: "Again"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	boards, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, boards, 1)
}

func TestBoardRepository_Update(t *testing.T) {
	db := setupSQLite(t)
	repo := NewBoardRepository(db)
	ctx := context.Background()

	board := seedBoard(t, db, "free")
	board.Title = "Renamed"
	board.Code = "lounge"
	require.NoError(t, repo.Update(ctx, board))
	assert.Equal(t, "free", board.Code)

	got, err := repo.GetByCode(ctx, "free")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	_, err = repo.GetByCode(ctx, "lounge")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	err = repo.Update(ctx, &models.Board{ID: 999, Code: "x", Title: "x"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestBoardRepository_DeleteCascadesToPosts(t *testing.T) {
	db := setupSQLite(t)
	repo := NewBoardRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	doomed := seedBoard(t, db, "free")
	kept := seedBoard(t, db, "qna")

	p1 := seedPost(t, db, doomed, alice, "one", "body", time.Now())
	seedPost(t, db, doomed, alice, "two", "body", time.Now())
	survivor := seedPost(t, db, kept, alice, "three", "body", time.Now())

	require.NoError(t, db.Create(&models.Comment{PostID: p1.ID, UserID: alice.ID, Content: "bye"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: survivor.ID, UserID: alice.ID, Content: "stay"}).Error)
	_, _, err := posts.ToggleLike(ctx, alice.ID, p1.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, doomed.ID))

	var postCount, commentCount, likeCount int64
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&commentCount).Error)
	require.NoError(t, db.Model(&models.Like{}).Count(&likeCount).Error)
	assert.Equal(t, int64(1), postCount)
	assert.Equal(t, int64(1), commentCount)
	assert.Zero(t, likeCount)

	assert.True(t, models.HasCode(repo.Delete(ctx, doomed.ID), models.CodeNotFound))
}
