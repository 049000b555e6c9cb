package service

import (
	"context"
	"strings"

	"bbs/internal/models"
	"bbs/internal/repository"
	"bbs/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

// CommentLocation identifies the post page a comment is shown on.
type CommentLocation struct {
	Comment   *models.Comment
	BoardCode string
	PostID    uint
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo}
}

func validateComment(content string) error {
	fields := validation.FieldErrors{}
	fields.Required("content", content)
	fields.MaxLen("content", content, validation.MaxCommentLen)
	if !fields.Empty() {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, in.PostID, 0); err != nil {
		return nil, err
	}
	if err := validateComment(in.Content); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Content: strings.TrimSpace(in.Content),
		UserID:  in.UserID,
		PostID:  in.PostID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

// ListComments returns a post's comments, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	return s.commentRepo.ListByPost(ctx, postID)
}

// Locate loads a comment together with the board and post it belongs to.
func (s *CommentService) Locate(ctx context.Context, commentID uint) (*CommentLocation, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, comment.PostID, 0)
	if err != nil {
		return nil, err
	}
	loc := &CommentLocation{Comment: comment, PostID: post.ID}
	if post.Board != nil {
		loc.BoardCode = post.Board.Code
	}
	return loc, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.UserID != in.UserID {
		return nil, permissionDenied("comment", "You do not have permission to edit this comment.")
	}
	if err := validateComment(in.Content); err != nil {
		return nil, err
	}

	comment.Content = strings.TrimSpace(in.Content)
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.UserID != in.UserID {
		return nil, permissionDenied("comment", "You do not have permission to delete this comment.")
	}

	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}

	return comment, nil
}
