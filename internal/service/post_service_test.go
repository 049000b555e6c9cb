package service

import (
	"context"
	"errors"
	"testing"

	"bbs/internal/config"
	"bbs/internal/featureflags"
	"bbs/internal/media"
	"bbs/internal/models"
	"bbs/internal/viewcount"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookieOnlyViews() *ViewDedup {
	return NewViewDedup(&config.Config{Timezone: "UTC"}, nil, featureflags.NewManager(""))
}

func ownedPost(id, boardID, authorID uint) func(context.Context, uint, uint) (*models.Post, error) {
	return func(_ context.Context, _ uint, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, BoardID: boardID, UserID: authorID, Title: "old", Content: "old", ImagePath: "board/images/old.png"}, nil
	}
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()
	svc := NewPostService(boardsByCode(models.Board{ID: 1, Code: "free"}), noopPostRepo(), &imageStoreStub{}, cookieOnlyViews())
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, CreatePostInput{UserID: 1, BoardCode: "free", Title: "  ", Content: ""})
	assertFieldError(t, err, "title")
	assertFieldError(t, err, "content")

	_, err = svc.CreatePost(ctx, CreatePostInput{UserID: 1, BoardCode: "missing", Title: "t", Content: "c"})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_CreatePost_WithImage(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	var created *models.Post
	posts.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 11
		created = p
		return nil
	}
	images := &imageStoreStub{}
	svc := NewPostService(boardsByCode(models.Board{ID: 4, Code: "free"}), posts, images, cookieOnlyViews())

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID:    9,
		BoardCode: "free",
		Title:     " Hello ",
		Content:   "World",
		Image:     &media.Upload{Filename: "a.png"},
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, uint(4), created.BoardID)
	assert.Equal(t, uint(9), created.UserID)
	assert.Equal(t, "Hello", created.Title)
	assert.Equal(t, "board/images/2024/01/01/a.png", created.ImagePath)
	assert.Equal(t, []media.Kind{media.PostImage}, images.saved)
}

func TestPostService_CreatePost_ImageRejectedAsFieldError(t *testing.T) {
	t.Parallel()
	images := &imageStoreStub{saveErr: models.NewValidationError("Invalid image type")}
	svc := NewPostService(boardsByCode(models.Board{ID: 4, Code: "free"}), noopPostRepo(), images, cookieOnlyViews())

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID: 9, BoardCode: "free", Title: "t", Content: "c", Image: &media.Upload{},
	})
	assertFieldError(t, err, "image")
}

func TestPostService_GetPost_WrongBoardIsNotFound(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	posts.getByIDFn = ownedPost(5, 2, 1)
	svc := NewPostService(boardsByCode(models.Board{ID: 1, Code: "free"}, models.Board{ID: 2, Code: "qna"}), posts, nil, cookieOnlyViews())

	_, err := svc.GetPost(context.Background(), "free", 5, 0)
	assertCode(t, err, models.CodeNotFound)

	post, err := svc.GetPost(context.Background(), "qna", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(5), post.ID)
}

func TestPostService_UpdatePost_AuthorOnly(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	posts.getByIDFn = ownedPost(5, 1, 10)
	updated := false
	posts.updateFn = func(_ context.Context, _ *models.Post) error { updated = true; return nil }
	svc := NewPostService(boardsByCode(models.Board{ID: 1, Code: "free"}), posts, &imageStoreStub{}, cookieOnlyViews())

	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{UserID: 11, BoardCode: "free", PostID: 5, Title: "new", Content: "new"})
	assertCode(t, err, models.CodePermissionDenied)
	assert.False(t, updated, "a refused edit must not write")
}

func TestPostService_UpdatePost_ReplacesImage(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	posts.getByIDFn = ownedPost(5, 1, 10)
	var saved *models.Post
	posts.updateFn = func(_ context.Context, p *models.Post) error { saved = p; return nil }
	images := &imageStoreStub{}
	svc := NewPostService(boardsByCode(models.Board{ID: 1, Code: "free"}), posts, images, cookieOnlyViews())

	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{
		UserID: 10, BoardCode: "free", PostID: 5, Title: "new title", Content: "new body",
		Image: &media.Upload{Filename: "b.png"},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "new title", saved.Title)
	assert.Equal(t, "board/images/2024/01/01/b.png", saved.ImagePath)
	assert.Nil(t, saved.LastEditorID, "the author editing their own post is not a distinct editor")
	assert.Equal(t, []string{"board/images/old.png"}, images.removed)
}

func TestMarkEdited(t *testing.T) {
	t.Parallel()
	post := &models.Post{UserID: 3}
	markEdited(post, 3)
	assert.Nil(t, post.LastEditorID)

	markEdited(post, 8)
	require.NotNil(t, post.LastEditorID)
	assert.Equal(t, uint(8), *post.LastEditorID)
}

func TestPostService_DeletePost(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	posts.getByIDFn = ownedPost(5, 1, 10)
	var deleted uint
	posts.deleteFn = func(_ context.Context, id uint) error { deleted = id; return nil }
	images := &imageStoreStub{}
	svc := NewPostService(boardsByCode(models.Board{ID: 1, Code: "free"}), posts, images, cookieOnlyViews())

	err := svc.DeletePost(context.Background(), DeletePostInput{UserID: 99, BoardCode: "free", PostID: 5})
	assertCode(t, err, models.CodePermissionDenied)
	assert.Zero(t, deleted)

	require.NoError(t, svc.DeletePost(context.Background(), DeletePostInput{UserID: 10, BoardCode: "free", PostID: 5}))
	assert.Equal(t, uint(5), deleted)
	assert.Equal(t, []string{"board/images/old.png"}, images.removed)
}

func TestPostService_ToggleLike(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	posts.getByIDFn = ownedPost(5, 1, 10)
	calls := 0
	posts.toggleLikeFn = func(_ context.Context, userID, postID uint) (bool, int64, error) {
		calls++
		assert.Equal(t, uint(20), userID)
		assert.Equal(t, uint(5), postID)
		return calls%2 == 1, int64(calls % 2), nil
	}
	svc := NewPostService(boardsByCode(models.Board{ID: 1, Code: "free"}), posts, nil, cookieOnlyViews())

	_, err := svc.ToggleLike(context.Background(), 20, "free", 5)
	require.NoError(t, err)
	_, err = svc.ToggleLike(context.Background(), 20, "free", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = svc.ToggleLike(context.Background(), 20, "qna", 5)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_RecordView_CookieMarker(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	increments := 0
	posts.incrementViewsFn = func(_ context.Context, _ uint) error { increments++; return nil }
	svc := NewPostService(boardsByCode(), posts, nil, cookieOnlyViews())

	post := &models.Post{ID: 5, Views: 3}
	d, err := svc.RecordView(context.Background(), post, viewcount.Visit{BoardCode: "free", PostID: 5})
	require.NoError(t, err)
	assert.True(t, d.Count)
	assert.Equal(t, int64(4), post.Views)

	d, err = svc.RecordView(context.Background(), post, viewcount.Visit{BoardCode: "free", PostID: 5, Marker: viewcount.MarkerValue})
	require.NoError(t, err)
	assert.False(t, d.Count)
	assert.Equal(t, int64(4), post.Views)
	assert.Equal(t, 1, increments)
}

func TestPostService_RecordView_FailedIncrementIsNotCounted(t *testing.T) {
	t.Parallel()
	posts := noopPostRepo()
	posts.incrementViewsFn = func(_ context.Context, _ uint) error { return errors.New("database is locked") }
	svc := NewPostService(boardsByCode(), posts, nil, cookieOnlyViews())

	post := &models.Post{ID: 5, Views: 3}
	d, err := svc.RecordView(context.Background(), post, viewcount.Visit{BoardCode: "free", PostID: 5})
	require.Error(t, err)
	assert.False(t, d.Count)
	assert.Equal(t, int64(3), post.Views)
}
