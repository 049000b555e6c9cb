package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bbs/internal/database"
	"bbs/internal/models"
	"bbs/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

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

func TestBoardService_ListPosts_Paging(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	author := &models.User{Username: "writer", Password: "x"}
	require.NoError(t, db.Create(author).Error)
	free := &models.Board{Code: "free", Title: "Free"}
	empty := &models.Board{Code: "empty", Title: "Empty"}
	require.NoError(t, db.Create(free).Error)
	require.NoError(t, db.Create(empty).Error)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 25; i++ {
		p := &models.Post{
			BoardID:   free.ID,
			UserID:    author.ID,
			Title:     fmt.Sprintf("post %02d", i),
			Content:   "body",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i%5 == 0 {
			p.Content = "Golang tips"
		}
		require.NoError(t, db.Omit("User", "Board", "LastEditor").Create(p).Error)
	}

	svc := NewBoardService(repository.NewBoardRepository(db), repository.NewPostRepository(db), 10, nil)

	tests := []struct {
		name      string
		in        ListPostsInput
		wantPage  int
		wantPages int
		wantTotal int64
		wantItems int
		wantFirst string
		wantNext  bool
		wantPrev  bool
	}{
		{name: "default page", in: ListPostsInput{BoardCode: "free"}, wantPage: 1, wantPages: 3, wantTotal: 25, wantItems: 10, wantFirst: "post 25", wantNext: true},
		{name: "last page", in: ListPostsInput{BoardCode: "free", Page: "3"}, wantPage: 3, wantPages: 3, wantTotal: 25, wantItems: 5, wantFirst: "post 05", wantPrev: true},
		{name: "beyond range clamps", in: ListPostsInput{BoardCode: "free", Page: "99"}, wantPage: 3, wantPages: 3, wantTotal: 25, wantItems: 5, wantFirst: "post 05", wantPrev: true},
		{name: "non-numeric", in: ListPostsInput{BoardCode: "free", Page: "abc"}, wantPage: 1, wantPages: 3, wantTotal: 25, wantItems: 10, wantFirst: "post 25", wantNext: true},
		{name: "zero clamps", in: ListPostsInput{BoardCode: "free", Page: "0"}, wantPage: 1, wantPages: 3, wantTotal: 25, wantItems: 10, wantFirst: "post 25", wantNext: true},
		{name: "search content case-insensitively", in: ListPostsInput{BoardCode: "free", Query: "GOLANG"}, wantPage: 1, wantPages: 1, wantTotal: 5, wantItems: 5, wantFirst: "post 25"},
		{name: "search title", in: ListPostsInput{BoardCode: "free", Query: "post 1"}, wantPage: 1, wantPages: 1, wantTotal: 10, wantItems: 10, wantFirst: "post 19"},
		{name: "empty board", in: ListPostsInput{BoardCode: "empty"}, wantPage: 1, wantPages: 1, wantTotal: 0, wantItems: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListPosts(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantPages, got.TotalPages)
			assert.Equal(t, tt.wantTotal, got.TotalItems)
			assert.Equal(t, tt.wantNext, got.HasNext)
			assert.Equal(t, tt.wantPrev, got.HasPrevious)
			require.Len(t, got.Items, tt.wantItems)
			assert.NotNil(t, got.Items)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, got.Items[0].Title)
			}
		})
	}
}

func TestBoardService_ListPosts_UnknownBoard(t *testing.T) {
	svc := NewBoardService(boardsByCode(), noopPostRepo(), 10, nil)
	_, err := svc.ListPosts(context.Background(), ListPostsInput{BoardCode: "nope"})
	assertCode(t, err, models.CodeNotFound)
}

func TestBoardService_ListPosts_PassesFilterAndWindow(t *testing.T) {
	posts := noopPostRepo()
	var gotFilter repository.PostFilter
	var gotLimit, gotOffset int
	var gotViewer uint
	posts.countFn = func(_ context.Context, f repository.PostFilter) (int64, error) { return 42, nil }
	posts.listFn = func(_ context.Context, f repository.PostFilter, limit, offset int, viewer uint) ([]models.Post, error) {
		gotFilter, gotLimit, gotOffset, gotViewer = f, limit, offset, viewer
		return []models.Post{{ID: 1}}, nil
	}
	svc := NewBoardService(boardsByCode(models.Board{ID: 7, Code: "free"}), posts, 20, nil)

	got, err := svc.ListPosts(context.Background(), ListPostsInput{BoardCode: "free", Query: " hello ", Page: "2", ViewerID: 3})
	require.NoError(t, err)
	assert.Equal(t, repository.PostFilter{BoardID: 7, Query: " hello "}, gotFilter)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 20, gotOffset)
	assert.Equal(t, uint(3), gotViewer)
	assert.Equal(t, " hello ", got.Query)
	assert.Equal(t, 3, got.TotalPages)
}

func TestBoardService_ManagerOnly(t *testing.T) {
	ctx := context.Background()
	isManager := func(_ context.Context, id uint) (bool, error) { return id == 1, nil }

	boards := boardsByCode(models.Board{ID: 3, Code: "free", Title: "Free"})
	var deleted uint
	boards.deleteFn = func(_ context.Context, id uint) error { deleted = id; return nil }
	svc := NewBoardService(boards, noopPostRepo(), 10, isManager)

	_, err := svc.CreateBoard(ctx, BoardInput{ActorID: 2, Code: "qna", Title: "Q&A"})
	assertCode(t, err, models.CodePermissionDenied)

	_, err = svc.CreateBoard(ctx, BoardInput{ActorID: 1, Code: "Bad Code", Title: ""})
	assertFieldError(t, err, "code")
	assertFieldError(t, err, "title")

	created, err := svc.CreateBoard(ctx, BoardInput{ActorID: 1, Code: "qna", Title: " Q&A "})
	require.NoError(t, err)
	assert.Equal(t, "Q&A", created.Title)

	updated, err := svc.UpdateBoard(ctx, "free", BoardInput{ActorID: 1, Description: "anything goes"})
	require.NoError(t, err)
	assert.Equal(t, "free", updated.Code)
	assert.Equal(t, "Free", updated.Title)
	assert.Equal(t, "anything goes", updated.Description)

	_, err = svc.UpdateBoard(ctx, "free", BoardInput{ActorID: 1, Code: "lounge", Title: "Lounge"})
	assertFieldError(t, err, "code")

	updated, err = svc.UpdateBoard(ctx, "free", BoardInput{ActorID: 1, Code: "free", Title: "Free talk"})
	require.NoError(t, err)
	assert.Equal(t, "free", updated.Code)
	assert.Equal(t, "Free talk", updated.Title)

	assertCode(t, svc.DeleteBoard(ctx, 2, "free"), models.CodePermissionDenied)
	require.NoError(t, svc.DeleteBoard(ctx, 1, "free"))
	assert.Equal(t, uint(3), deleted)

	noManagers := NewBoardService(boards, noopPostRepo(), 10, nil)
	assertCode(t, noManagers.DeleteBoard(ctx, 1, "free"), models.CodePermissionDenied)
}
