package service

import (
	"database/sql"
	"errors"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
	"github.com/rtdacademy/rtd-connect-api/pkg/validation"
)

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// invalidRequest wraps a validator failure with the per-field messages appended.
func invalidRequest(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message+": "+validation.Describe(err))
}
