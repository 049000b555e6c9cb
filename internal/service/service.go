// Package service holds the board's business rules between the HTTP layer and the repositories.
package service

import (
	"context"
	"errors"

	"bbs/internal/media"
	"bbs/internal/models"
	"bbs/internal/observability"
)

// ImageStore persists uploaded images.
type ImageStore interface {
	Save(ctx context.Context, kind media.Kind, in media.Upload) (*media.Stored, error)
	Remove(rel string) error
}

// permissionDenied builds the refusal returned when someone other than the
// author tries to change a post or comment.
func permissionDenied(resource, message string) error {
	observability.PermissionDenials.WithLabelValues(resource).Inc()
	return models.NewPermissionDeniedError(message)
}

// asFieldError pins a plain validation error to one form field.
func asFieldError(field string, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation && len(appErr.Fields) == 0 {
		return models.NewFieldValidationError(map[string]string{field: appErr.Message})
	}
	return err
}
