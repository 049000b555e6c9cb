package server

import (
	"bbs/internal/service"

	"github.com/gofiber/fiber/v2"
)

type boardForm struct {
	Code        string `json:"code" form:"code"`
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}

// ListBoards handles GET /board/
func (s *Server) ListBoards(c *fiber.Ctx) error {
	boards, err := s.boardService.ListBoards(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"boards": boards})
}

// CreateBoard handles POST /board/ (board managers only)
func (s *Server) CreateBoard(c *fiber.Ctx) error {
	var form boardForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}

	board, err := s.boardService.CreateBoard(c.UserContext(), service.BoardInput{
		ActorID:     currentUserID(c),
		Code:        form.Code,
		Title:       form.Title,
		Description: form.Description,
	})
	if err != nil {
		return respondForm(c, err, form)
	}
	return c.Status(fiber.StatusCreated).JSON(board)
}

// UpdateBoard handles PUT /board/:code/ (board managers only)
func (s *Server) UpdateBoard(c *fiber.Ctx) error {
	var form boardForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}

	board, err := s.boardService.UpdateBoard(c.UserContext(), c.Params("code"), service.BoardInput{
		ActorID:     currentUserID(c),
		Code:        form.Code,
		Title:       form.Title,
		Description: form.Description,
	})
	if err != nil {
		return respondForm(c, err, form)
	}
	return c.JSON(board)
}

// DeleteBoard handles DELETE /board/:code/ (board managers only)
func (s *Server) DeleteBoard(c *fiber.Ctx) error {
	if err := s.boardService.DeleteBoard(c.UserContext(), currentUserID(c), c.Params("code")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPosts handles GET /board/:code/?q=&page=
func (s *Server) ListPosts(c *fiber.Ctx) error {
	viewerID, _ := s.optionalUserID(c)

	listing, err := s.boardService.ListPosts(c.UserContext(), service.ListPostsInput{
		BoardCode: c.Params("code"),
		Query:     c.Query("q"),
		Page:      c.Query("page"),
		ViewerID:  viewerID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"board":      listing.Board,
		"q":          listing.Query,
		"posts":      listing.Items,
		"pagination": listing.Meta,
		"messages":   popFlash(c),
	})
}
