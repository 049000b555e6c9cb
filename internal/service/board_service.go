package service

import (
	"context"
	"strings"

	"bbs/internal/models"
	"bbs/internal/observability"
	"bbs/internal/pagination"
	"bbs/internal/repository"
	"bbs/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type BoardService struct {
	boardRepo repository.BoardRepository
	postRepo  repository.PostRepository
	pageSize  int
	isManager func(ctx context.Context, userID uint) (bool, error)
}

type ListPostsInput struct {
	BoardCode string
	Query     string
	// Page is the raw query value; anything unparsable means page 1.
	Page     string
	ViewerID uint
}

// PostListing is one page of a board's posts.
type PostListing struct {
	Board *models.Board `json:"board"`
	Query string        `json:"q"`
	pagination.Result[models.Post]
}

type BoardInput struct {
	ActorID     uint
	Code        string
	Title       string
	Description string
}

func NewBoardService(
	boardRepo repository.BoardRepository,
	postRepo repository.PostRepository,
	pageSize int,
	isManager func(ctx context.Context, userID uint) (bool, error),
) *BoardService {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &BoardService{
		boardRepo: boardRepo,
		postRepo:  postRepo,
		pageSize:  pageSize,
		isManager: isManager,
	}
}

func (s *BoardService) ListBoards(ctx context.Context) ([]models.Board, error) {
	return s.boardRepo.List(ctx)
}

func (s *BoardService) GetBoard(ctx context.Context, code string) (*models.Board, error) {
	return s.boardRepo.GetByCode(ctx, code)
}

// ListPosts returns one page of a board, newest first, optionally filtered by
// a case-insensitive substring of title or content. Out-of-range pages clamp.
func (s *BoardService) ListPosts(ctx context.Context, in ListPostsInput) (*PostListing, error) {
	span, ctx := observability.NewSpan(ctx, "BoardService.ListPosts",
		attribute.String("board.code", in.BoardCode))
	defer span.End()

	board, err := s.boardRepo.GetByCode(ctx, in.BoardCode)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	// The query is matched verbatim; surrounding spaces are part of the substring.
	query := in.Query
	filter := repository.PostFilter{BoardID: board.ID, Query: query}

	total, err := s.postRepo.Count(ctx, filter)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	meta := pagination.Compute(pagination.ParsePage(in.Page), s.pageSize, total)
	posts := []models.Post{}
	if total > 0 {
		posts, err = s.postRepo.List(ctx, filter, meta.Limit(), meta.Offset(), in.ViewerID)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	span.AddAttributes(attribute.Int("page", meta.Page), attribute.Int64("total", total))
	return &PostListing{
		Board:  board,
		Query:  query,
		Result: pagination.Result[models.Post]{Items: posts, Meta: meta},
	}, nil
}

func (s *BoardService) CreateBoard(ctx context.Context, in BoardInput) (*models.Board, error) {
	if err := s.requireManager(ctx, in.ActorID); err != nil {
		return nil, err
	}
	if err := validateBoard(in); err != nil {
		return nil, err
	}
	board := &models.Board{Code: in.Code, Title: strings.TrimSpace(in.Title), Description: in.Description}
	if err := s.boardRepo.Create(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *BoardService) UpdateBoard(ctx context.Context, code string, in BoardInput) (*models.Board, error) {
	if err := s.requireManager(ctx, in.ActorID); err != nil {
		return nil, err
	}
	board, err := s.boardRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	// A board's code is its permanent address.
	if in.Code != "" && in.Code != board.Code {
		return nil, models.NewFieldValidationError(map[string]string{"code": "Board code cannot be changed"})
	}
	in.Code = board.Code
	if in.Title == "" {
		in.Title = board.Title
	}
	if err := validateBoard(in); err != nil {
		return nil, err
	}
	board.Title = strings.TrimSpace(in.Title)
	board.Description = in.Description
	if err := s.boardRepo.Update(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

// DeleteBoard removes the board and every post on it.
func (s *BoardService) DeleteBoard(ctx context.Context, actorID uint, code string) error {
	if err := s.requireManager(ctx, actorID); err != nil {
		return err
	}
	board, err := s.boardRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.boardRepo.Delete(ctx, board.ID)
}

func (s *BoardService) requireManager(ctx context.Context, userID uint) error {
	if s.isManager == nil || userID == 0 {
		return permissionDenied("board", "Only board managers can manage boards")
	}
	ok, err := s.isManager(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return permissionDenied("board", "Only board managers can manage boards")
	}
	return nil
}

func validateBoard(in BoardInput) error {
	fields := validation.FieldErrors{}
	fields.Check("code", validation.ValidateBoardCode(in.Code))
	fields.Required("title", in.Title)
	fields.MaxLen("title", in.Title, validation.MaxBoardTitleLen)
	fields.MaxLen("description", in.Description, validation.MaxDescriptionLen)
	if !fields.Empty() {
		return models.NewFieldValidationError(fields)
	}
	return nil
}
