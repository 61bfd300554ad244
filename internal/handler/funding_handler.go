package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	"github.com/rtdacademy/rtd-connect-api/pkg/response"
)

type fundingService interface {
	Determine(ctx context.Context, req dto.FundingEligibilityRequest) (*eligibility.FundingResult, error)
	ForStudent(ctx context.Context, studentID, schoolYear string, actor *models.JWTClaims) (*dto.StudentFundingResponse, error)
	EnqueueRecompute(ctx context.Context, req dto.RecomputeFundingRequest, actor *models.JWTClaims) (*dto.RecomputeAccepted, error)
}

// FundingHandler exposes the home education funding checks.
type FundingHandler struct {
	service fundingService
}

// NewFundingHandler constructs FundingHandler.
func NewFundingHandler(service fundingService) *FundingHandler {
	return &FundingHandler{service: service}
}

// Determine godoc
// @Summary Check funding eligibility for a date of birth
// @Tags Funding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.FundingEligibilityRequest true "Birthday and school year"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /funding/eligibility [post]
func (h *FundingHandler) Determine(c *gin.Context) {
	var req dto.FundingEligibilityRequest
	if !bindJSON(c, &req, "invalid funding payload") {
		return
	}
	result, err := h.service.Determine(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ForStudent godoc
// @Summary Funding eligibility of a registered student
// @Tags Funding
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param school_year query string false "School year as YY/YY"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/funding-eligibility [get]
func (h *FundingHandler) ForStudent(c *gin.Context) {
	result, err := h.service.ForStudent(c.Request.Context(), c.Param("id"), c.Query("school_year"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Recompute godoc
// @Summary Queue a funding snapshot refresh for all active students
// @Tags Funding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RecomputeFundingRequest false "Target school year"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /funding/recompute [post]
func (h *FundingHandler) Recompute(c *gin.Context) {
	var req dto.RecomputeFundingRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid recompute payload") {
		return
	}
	accepted, err := h.service.EnqueueRecompute(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, accepted)
}
