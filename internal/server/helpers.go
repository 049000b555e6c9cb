package server

import (
	"errors"
	"fmt"
	"io"

	"bbs/internal/media"
	"bbs/internal/middleware"
	"bbs/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

func humanizeParam(param string) string {
	switch param {
	case "id":
		return "ID"
	case "receiverId":
		return "receiver ID"
	}
	return param
}

// respondError writes err with the status its code maps to. Unknown errors are
// logged and reported as a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err)
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// formErrorResponse is sent when a submitted form fails validation. The
// submitted values come back so the client can redisplay them.
type formErrorResponse struct {
	models.ErrorResponse
	Form any `json:"form"`
}

// respondForm reports err like respondError, echoing form back on field errors.
func respondForm(c *fiber.Ctx, err error, form any) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(formErrorResponse{
			ErrorResponse: models.ErrorResponse{
				Error:  appErr.Message,
				Code:   appErr.Code,
				Fields: appErr.Fields,
			},
			Form: form,
		})
	}
	return respondError(c, err)
}

// redirectWithFlash leaves a one-shot notice for the next page and sends the
// client there with 303 See Other.
func redirectWithFlash(c *fiber.Ctx, location, message string) error {
	if message != "" {
		setFlash(c, message)
	}
	return c.Redirect(location, fiber.StatusSeeOther)
}

// formUpload reads an optional file field from a multipart body.
func formUpload(c *fiber.Ctx, field string) (*media.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Not a multipart request; no file.
		return nil, nil
	}
	files := form.File[field]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, nil
	}

	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewFieldValidationError(map[string]string{field: "Failed to read uploaded file"})
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewFieldValidationError(map[string]string{field: "Failed to read uploaded file"})
	}
	return &media.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// bindForm parses a JSON, urlencoded or multipart body into dst.
func bindForm(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

func boardPath(code string) string {
	return fmt.Sprintf("/board/%s/", code)
}

func postPath(code string, postID uint) string {
	return fmt.Sprintf("/board/%s/%d", code, postID)
}
