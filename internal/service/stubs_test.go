package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bbs/internal/media"
	"bbs/internal/models"
	"bbs/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boardRepoStub is a stub for repository.BoardRepository.
type boardRepoStub struct {
	listFn      func(context.Context) ([]models.Board, error)
	getByCodeFn func(context.Context, string) (*models.Board, error)
	createFn    func(context.Context, *models.Board) error
	updateFn    func(context.Context, *models.Board) error
	deleteFn    func(context.Context, uint) error
}

func (s *boardRepoStub) List(ctx context.Context) ([]models.Board, error) { return s.listFn(ctx) }
func (s *boardRepoStub) GetByCode(ctx context.Context, code string) (*models.Board, error) {
	return s.getByCodeFn(ctx, code)
}
func (s *boardRepoStub) Create(ctx context.Context, b *models.Board) error { return s.createFn(ctx, b) }
func (s *boardRepoStub) Update(ctx context.Context, b *models.Board) error { return s.updateFn(ctx, b) }
func (s *boardRepoStub) Delete(ctx context.Context, id uint) error         { return s.deleteFn(ctx, id) }

// boardsByCode serves GetByCode from a fixed set of boards.
func boardsByCode(boards ...models.Board) *boardRepoStub {
	return &boardRepoStub{
		listFn: func(_ context.Context) ([]models.Board, error) { return boards, nil },
		getByCodeFn: func(_ context.Context, code string) (*models.Board, error) {
			for i := range boards {
				if boards[i].Code == code {
					b := boards[i]
					return &b, nil
				}
			}
			return nil, models.NewNotFoundError("Board", code)
		},
		createFn: func(_ context.Context, _ *models.Board) error { return nil },
		updateFn: func(_ context.Context, _ *models.Board) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn         func(context.Context, *models.Post) error
	getByIDFn        func(context.Context, uint, uint) (*models.Post, error)
	listFn           func(context.Context, repository.PostFilter, int, int, uint) ([]models.Post, error)
	countFn          func(context.Context, repository.PostFilter) (int64, error)
	updateFn         func(context.Context, *models.Post) error
	deleteFn         func(context.Context, uint) error
	incrementViewsFn func(context.Context, uint) error
	toggleLikeFn     func(context.Context, uint, uint) (bool, int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) List(ctx context.Context, f repository.PostFilter, limit, offset int, currentUserID uint) ([]models.Post, error) {
	return s.listFn(ctx, f, limit, offset, currentUserID)
}
func (s *postRepoStub) Count(ctx context.Context, f repository.PostFilter) (int64, error) {
	return s.countFn(ctx, f)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *postRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, userID, postID uint) (bool, int64, error) {
	return s.toggleLikeFn(ctx, userID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn: func(_ context.Context, _ repository.PostFilter, _, _ int, _ uint) ([]models.Post, error) {
			return nil, nil
		},
		countFn:          func(_ context.Context, _ repository.PostFilter) (int64, error) { return 0, nil },
		updateFn:         func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:         func(_ context.Context, _ uint) error { return nil },
		incrementViewsFn: func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn:     func(_ context.Context, _, _ uint) (bool, int64, error) { return true, 1, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint) ([]models.Comment, error)
	updateFn     func(context.Context, *models.Comment) error
	deleteFn     func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) Update(ctx context.Context, c *models.Comment) error {
	return s.updateFn(ctx, c)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:    func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPostFn: func(_ context.Context, _ uint) ([]models.Comment, error) { return nil, nil },
		updateFn:     func(_ context.Context, _ *models.Comment) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getByNicknameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	return s.getByNicknameFn(ctx, nickname)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByNicknameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
	}
}

// messageRepoStub is a stub for repository.MessageRepository.
type messageRepoStub struct {
	createFn      func(context.Context, *models.Message) error
	getByIDFn     func(context.Context, uint) (*models.Message, error)
	markReadFn    func(context.Context, uint, time.Time) (bool, error)
	listFn        func(context.Context, uint, repository.Mailbox, int, int) ([]models.Message, error)
	countFn       func(context.Context, uint, repository.Mailbox) (int64, error)
	countUnreadFn func(context.Context, uint) (int64, error)
}

func (s *messageRepoStub) Create(ctx context.Context, m *models.Message) error {
	return s.createFn(ctx, m)
}
func (s *messageRepoStub) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id)
}
func (s *messageRepoStub) MarkRead(ctx context.Context, id uint, at time.Time) (bool, error) {
	return s.markReadFn(ctx, id, at)
}
func (s *messageRepoStub) List(ctx context.Context, userID uint, box repository.Mailbox, limit, offset int) ([]models.Message, error) {
	return s.listFn(ctx, userID, box, limit, offset)
}
func (s *messageRepoStub) Count(ctx context.Context, userID uint, box repository.Mailbox) (int64, error) {
	return s.countFn(ctx, userID, box)
}
func (s *messageRepoStub) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.countUnreadFn(ctx, userID)
}

// imageStoreStub records saves and removals without touching disk.
type imageStoreStub struct {
	saved   []media.Kind
	removed []string
	saveErr error
}

func (s *imageStoreStub) Save(_ context.Context, kind media.Kind, in media.Upload) (*media.Stored, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.saved = append(s.saved, kind)
	return &media.Stored{Path: string(kind) + "/2024/01/01/" + in.Filename}, nil
}

func (s *imageStoreStub) Remove(rel string) error {
	s.removed = append(s.removed, rel)
	return nil
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertFieldError asserts a validation error naming field.
func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, field)
}
