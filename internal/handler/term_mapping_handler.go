package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	"github.com/rtdacademy/rtd-connect-api/pkg/response"
)

type termMappingService interface {
	Get(ctx context.Context) (*dto.TermMappingResponse, error)
	Replace(ctx context.Context, payload dto.TermMappingPayload, actor *models.JWTClaims) (*dto.TermMappingResponse, error)
}

// TermMappingHandler manages which PASI terms count as Term 1 and Term 2.
type TermMappingHandler struct {
	service termMappingService
}

// NewTermMappingHandler constructs TermMappingHandler.
func NewTermMappingHandler(service termMappingService) *TermMappingHandler {
	return &TermMappingHandler{service: service}
}

// Get godoc
// @Summary Current term mapping
// @Tags Terms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /terms/mappings [get]
func (h *TermMappingHandler) Get(c *gin.Context) {
	mapping, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, nil)
}

// Replace godoc
// @Summary Replace the term mapping
// @Tags Terms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.TermMappingPayload true "Mapping"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /terms/mappings [put]
func (h *TermMappingHandler) Replace(c *gin.Context) {
	var payload dto.TermMappingPayload
	if !bindJSON(c, &payload, "invalid term mapping payload") {
		return
	}
	mapping, err := h.service.Replace(c.Request.Context(), payload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mapping, nil)
}
