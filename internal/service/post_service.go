package service

import (
	"context"
	"strings"

	"bbs/internal/media"
	"bbs/internal/middleware"
	"bbs/internal/models"
	"bbs/internal/observability"
	"bbs/internal/repository"
	"bbs/internal/validation"
	"bbs/internal/viewcount"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	boardRepo repository.BoardRepository
	postRepo  repository.PostRepository
	images    ImageStore
	views     *ViewDedup
}

type CreatePostInput struct {
	UserID    uint
	BoardCode string
	Title     string
	Content   string
	Image     *media.Upload
}

type UpdatePostInput struct {
	UserID    uint
	BoardCode string
	PostID    uint
	Title     string
	Content   string
	Image     *media.Upload
	// ClearImage drops the current attachment when no new one is given.
	ClearImage bool
}

type DeletePostInput struct {
	UserID    uint
	BoardCode string
	PostID    uint
}

func NewPostService(
	boardRepo repository.BoardRepository,
	postRepo repository.PostRepository,
	images ImageStore,
	views *ViewDedup,
) *PostService {
	return &PostService{
		boardRepo: boardRepo,
		postRepo:  postRepo,
		images:    images,
		views:     views,
	}
}

func validatePostForm(title, content string) error {
	fields := validation.FieldErrors{}
	fields.Required("title", title)
	fields.MaxLen("title", title, validation.MaxTitleLen)
	fields.Required("content", content)
	fields.MaxLen("content", content, validation.MaxContentLen)
	if !fields.Empty() {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	board, err := s.boardRepo.GetByCode(ctx, in.BoardCode)
	if err != nil {
		return nil, err
	}
	if err := validatePostForm(in.Title, in.Content); err != nil {
		return nil, err
	}

	post := &models.Post{
		BoardID: board.ID,
		UserID:  in.UserID,
		Title:   strings.TrimSpace(in.Title),
		Content: in.Content,
	}
	if in.Image != nil {
		stored, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.ImagePath = stored.Path
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discardImage(ctx, post.ImagePath)
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// GetPost loads a post for its detail page. A post is only reachable under its own board.
func (s *PostService) GetPost(ctx context.Context, boardCode string, postID, viewerID uint) (*models.Post, error) {
	board, err := s.boardRepo.GetByCode(ctx, boardCode)
	if err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	if post.BoardID != board.ID {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// RecordView asks the dedup filter whether this visit counts and, if so,
// bumps the stored counter and the loaded post.
func (s *PostService) RecordView(ctx context.Context, post *models.Post, v viewcount.Visit) (viewcount.Decision, error) {
	filter := s.views.For(v.ClientToken)
	span, ctx := observability.NewSpan(ctx, "PostService.RecordView",
		attribute.Int64("post.id", int64(post.ID)),
		attribute.String("dedup.mode", filter.Mode()))
	defer span.End()

	d, err := filter.ShouldCount(ctx, v)
	if err != nil {
		span.SetError(err)
		return d, err
	}
	if !d.Count {
		return d, nil
	}
	if err := s.postRepo.IncrementViews(ctx, post.ID); err != nil {
		span.SetError(err)
		// Not counted, so the client must not be marked as counted either.
		d.Count = false
		return d, err
	}
	post.Views++
	return d, nil
}

// UpdatePost applies an author's edit.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.GetPost(ctx, in.BoardCode, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, permissionDenied("post", "You do not have permission to edit this post.")
	}
	if err := validatePostForm(in.Title, in.Content); err != nil {
		return nil, err
	}

	previousImage := post.ImagePath
	post.Title = strings.TrimSpace(in.Title)
	post.Content = in.Content
	switch {
	case in.Image != nil:
		stored, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.ImagePath = stored.Path
	case in.ClearImage:
		post.ImagePath = ""
	}
	markEdited(post, in.UserID)

	if err := s.postRepo.Update(ctx, post); err != nil {
		if post.ImagePath != previousImage {
			s.discardImage(ctx, post.ImagePath)
		}
		return nil, err
	}
	if post.ImagePath != previousImage {
		s.discardImage(ctx, previousImage)
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// markEdited records actorID as the post's last editor unless actorID is the author.
func markEdited(post *models.Post, actorID uint) {
	if actorID == 0 || actorID == post.UserID {
		return
	}
	editor := actorID
	post.LastEditorID = &editor
}

// DeletePost removes an author's post together with its comments and likes.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.GetPost(ctx, in.BoardCode, in.PostID, in.UserID)
	if err != nil {
		return err
	}
	if post.UserID != in.UserID {
		return permissionDenied("post", "You do not have permission to delete this post.")
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.discardImage(ctx, post.ImagePath)
	return nil
}

// ToggleLike flips the caller's membership in the post's like-set.
func (s *PostService) ToggleLike(ctx context.Context, userID uint, boardCode string, postID uint) (*models.Post, error) {
	if _, err := s.GetPost(ctx, boardCode, postID, userID); err != nil {
		return nil, err
	}
	liked, _, err := s.postRepo.ToggleLike(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	state := "unliked"
	if liked {
		state = "liked"
	}
	observability.LikeToggles.WithLabelValues(state).Inc()
	return s.postRepo.GetByID(ctx, postID, userID)
}

func (s *PostService) saveImage(ctx context.Context, upload *media.Upload) (*media.Stored, error) {
	if s.images == nil {
		return nil, models.NewValidationError("Image uploads are not available")
	}
	stored, err := s.images.Save(ctx, media.PostImage, *upload)
	if err != nil {
		return nil, asFieldError("image", err)
	}
	return stored, nil
}

func (s *PostService) discardImage(ctx context.Context, rel string) {
	if rel == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(rel); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove post image", "path", rel, "error", err)
	}
}
