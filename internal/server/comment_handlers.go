package server

import (
	"bbs/internal/models"
	"bbs/internal/service"

	"github.com/gofiber/fiber/v2"
)

// EditCommentForm handles GET /comment/:id/edit/
func (s *Server) EditCommentForm(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	loc, err := s.commentService.Locate(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if loc.Comment.UserID != currentUserID(c) {
		return redirectWithFlash(c, postPath(loc.BoardCode, loc.PostID),
			"You do not have permission to edit this comment.")
	}

	return c.JSON(fiber.Map{
		"comment": loc.Comment,
		"form":    commentForm{Content: loc.Comment.Content},
		"post":    postPath(loc.BoardCode, loc.PostID),
	})
}

// UpdateComment handles POST /comment/:id/edit/
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	loc, err := s.commentService.Locate(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	var form commentForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}

	_, err = s.commentService.UpdateComment(ctx, service.UpdateCommentInput{
		UserID:    currentUserID(c),
		CommentID: id,
		Content:   form.Content,
	})
	if err != nil {
		if models.HasCode(err, models.CodePermissionDenied) {
			return denied(c, err, postPath(loc.BoardCode, loc.PostID))
		}
		return respondForm(c, err, form)
	}
	return c.Redirect(postPath(loc.BoardCode, loc.PostID), fiber.StatusSeeOther)
}

// DeleteComment handles POST /comment/:id/delete/
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	loc, err := s.commentService.Locate(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	_, err = s.commentService.DeleteComment(ctx, service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: id,
	})
	if err != nil {
		return denied(c, err, postPath(loc.BoardCode, loc.PostID))
	}
	return c.Redirect(postPath(loc.BoardCode, loc.PostID), fiber.StatusSeeOther)
}
