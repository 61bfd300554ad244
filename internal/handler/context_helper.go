package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtdacademy/rtd-connect-api/internal/middleware"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
	"github.com/rtdacademy/rtd-connect-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

// bindJSON decodes the body and answers 400 on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func pagination(page, size, total int) *response.Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}
	return &response.Pagination{Page: page, PageSize: size, TotalCount: total}
}
