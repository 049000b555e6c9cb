package server

import (
	"errors"
	"time"

	"bbs/internal/media"
	"bbs/internal/middleware"
	"bbs/internal/models"
	"bbs/internal/service"
	"bbs/internal/viewcount"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type postForm struct {
	Title      string `json:"title" form:"title"`
	Content    string `json:"content" form:"content"`
	ClearImage bool   `json:"image_clear" form:"image-clear"`
}

type commentForm struct {
	Content string `json:"content" form:"content"`
}

// denied turns a permission refusal into a flash notice plus a redirect to
// location. Any other error is reported as usual.
func denied(c *fiber.Ctx, err error, location string) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodePermissionDenied {
		return redirectWithFlash(c, location, appErr.Message)
	}
	return respondError(c, err)
}

func postView(post *models.Post) fiber.Map {
	view := fiber.Map{"post": post}
	if post.ImagePath != "" {
		view["image_url"] = media.URL(post.ImagePath)
	}
	return view
}

// WritePostForm handles GET /board/:code/write/
func (s *Server) WritePostForm(c *fiber.Ctx) error {
	board, err := s.boardService.GetBoard(c.UserContext(), c.Params("code"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"board":  board,
		"form":   postForm{},
		"action": "/board/" + board.Code + "/write/",
	})
}

// CreatePost handles POST /board/:code/write/
func (s *Server) CreatePost(c *fiber.Ctx) error {
	code := c.Params("code")

	var form postForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}
	image, err := formUpload(c, "image")
	if err != nil {
		return respondForm(c, err, form)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:    currentUserID(c),
		BoardCode: code,
		Title:     form.Title,
		Content:   form.Content,
		Image:     image,
	})
	if err != nil {
		return respondForm(c, err, form)
	}
	return c.Redirect(postPath(code, post.ID), fiber.StatusSeeOther)
}

// GetPost handles GET /board/:code/:id
// A view is counted at most once per client per post per local day.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	code := c.Params("code")
	ctx := c.UserContext()
	viewerID, _ := s.optionalUserID(c)

	post, err := s.postService.GetPost(ctx, code, id, viewerID)
	if err != nil {
		return respondError(c, err)
	}

	clientToken := c.Cookies(viewcount.ClientCookie)
	if clientToken == "" {
		clientToken = uuid.NewString()
		s.setClientCookie(c, clientToken)
	}

	decision, err := s.postService.RecordView(ctx, post, viewcount.Visit{
		BoardCode:   code,
		PostID:      post.ID,
		Marker:      c.Cookies(viewcount.MarkerCookieName(code, post.ID)),
		ClientToken: clientToken,
	})
	if err != nil {
		// The page still renders; only the counter is affected.
		middleware.Logger.WarnContext(ctx, "failed to record view",
			"post_id", post.ID, "error", err)
	}
	if decision.IssueToken != "" && decision.IssueToken != clientToken {
		s.setClientCookie(c, decision.IssueToken)
	}
	if err == nil && decision.Count {
		c.Cookie(&fiber.Cookie{
			Name:     viewcount.MarkerCookieName(code, post.ID),
			Value:    viewcount.MarkerValue,
			Path:     "/",
			Expires:  decision.Expires,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	comments, err := s.commentService.ListComments(ctx, post.ID)
	if err != nil {
		return respondError(c, err)
	}

	view := postView(post)
	view["comments"] = comments
	view["messages"] = popFlash(c)
	view["can_edit"] = viewerID != 0 && viewerID == post.UserID
	return c.JSON(view)
}

func (s *Server) setClientCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     viewcount.ClientCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(viewcount.ClientTokenTTL),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// EditPostForm handles GET /board/:code/:id/edit/
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	code := c.Params("code")
	userID := currentUserID(c)

	post, err := s.postService.GetPost(c.UserContext(), code, id, userID)
	if err != nil {
		return respondError(c, err)
	}
	if post.UserID != userID {
		return redirectWithFlash(c, postPath(code, id), "You do not have permission to edit this post.")
	}

	view := postView(post)
	view["form"] = postForm{Title: post.Title, Content: post.Content}
	return c.JSON(view)
}

// UpdatePost handles POST /board/:code/:id/edit/
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	code := c.Params("code")

	var form postForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}
	image, err := formUpload(c, "image")
	if err != nil {
		return respondForm(c, err, form)
	}

	_, err = s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:     currentUserID(c),
		BoardCode:  code,
		PostID:     id,
		Title:      form.Title,
		Content:    form.Content,
		Image:      image,
		ClearImage: form.ClearImage,
	})
	if err != nil {
		if models.HasCode(err, models.CodePermissionDenied) {
			return denied(c, err, postPath(code, id))
		}
		return respondForm(c, err, form)
	}
	return c.Redirect(postPath(code, id), fiber.StatusSeeOther)
}

// DeletePost handles POST /board/:code/:id/delete/
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	code := c.Params("code")

	err = s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID:    currentUserID(c),
		BoardCode: code,
		PostID:    id,
	})
	if err != nil {
		return denied(c, err, postPath(code, id))
	}
	return c.Redirect(boardPath(code), fiber.StatusSeeOther)
}

// ToggleLike handles POST /board/:code/:id/like/
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), c.Params("code"), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"liked":       post.Liked,
		"likes_count": post.LikesCount,
	})
}

// CreateComment handles POST /board/:code/:id/comment
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	code := c.Params("code")
	userID := currentUserID(c)
	ctx := c.UserContext()

	if _, err := s.postService.GetPost(ctx, code, id, userID); err != nil {
		return respondError(c, err)
	}

	var form commentForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}

	_, err = s.commentService.CreateComment(ctx, service.CreateCommentInput{
		UserID:  userID,
		PostID:  id,
		Content: form.Content,
	})
	if err != nil {
		return respondForm(c, err, form)
	}
	return c.Redirect(postPath(code, id), fiber.StatusSeeOther)
}
