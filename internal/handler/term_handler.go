package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
	"github.com/rtdacademy/rtd-connect-api/pkg/response"
)

type termReconciliationService interface {
	Evaluate(ctx context.Context, req dto.EvaluateTermRequest) (*dto.TermEvaluation, error)
	List(ctx context.Context, query dto.TermReconciliationQuery) ([]dto.TermEvaluation, int, error)
	Summary(ctx context.Context, query dto.TermReconciliationQuery) (*dto.TermReconciliationSummary, error)
	Export(ctx context.Context, query dto.TermReconciliationQuery) (*dto.ExportFile, error)
	Review(ctx context.Context, id string, req dto.ReviewTermRequest, actor *models.JWTClaims) (*dto.TermEvaluation, error)
}

// TermHandler serves the PASI term reconciliation endpoints.
type TermHandler struct {
	service termReconciliationService
}

// NewTermHandler constructs TermHandler.
func NewTermHandler(service termReconciliationService) *TermHandler {
	return &TermHandler{service: service}
}

// Evaluate godoc
// @Summary Run a single enrollment record through the term rules
// @Tags Terms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.EvaluateTermRequest true "Enrollment record"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /terms/evaluate [post]
func (h *TermHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateTermRequest
	if !bindJSON(c, &req, "invalid term evaluation payload") {
		return
	}
	result, err := h.service.Evaluate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List enrollments with their term reconciliation
// @Tags Terms
// @Produce json
// @Security BearerAuth
// @Param school_year query string false "School year"
// @Param course_code query string false "Course code"
// @Param status query string false "Enrollment status"
// @Param pasi_term query string false "PASI term"
// @Param unchecked_only query bool false "Only rows not yet reviewed"
// @Param mismatch_only query bool false "Only rows whose term disagrees with PASI"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /terms/reconciliation [get]
func (h *TermHandler) List(c *gin.Context) {
	query, ok := bindReconciliationQuery(c)
	if !ok {
		return
	}
	rows, total, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination(query.Page, query.PageSize, total))
}

// Summary godoc
// @Summary Count reconciliation outcomes
// @Tags Terms
// @Produce json
// @Security BearerAuth
// @Param school_year query string false "School year"
// @Param course_code query string false "Course code"
// @Success 200 {object} response.Envelope
// @Router /terms/reconciliation/summary [get]
func (h *TermHandler) Summary(c *gin.Context) {
	query, ok := bindReconciliationQuery(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Download the reconciliation as csv or pdf
// @Tags Terms
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Param mismatch_only query bool false "Only rows whose term disagrees with PASI"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /terms/reconciliation/export [get]
func (h *TermHandler) Export(c *gin.Context) {
	query, ok := bindReconciliationQuery(c)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Review godoc
// @Summary Mark an enrollment's term as checked and optionally override it
// @Tags Terms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body dto.ReviewTermRequest true "Review"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /terms/reconciliation/{id}/review [put]
func (h *TermHandler) Review(c *gin.Context) {
	var req dto.ReviewTermRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	result, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func bindReconciliationQuery(c *gin.Context) (dto.TermReconciliationQuery, bool) {
	var query dto.TermReconciliationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reconciliation query"))
		return query, false
	}
	return query, true
}
