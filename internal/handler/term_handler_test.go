package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
)

type termServiceMock struct {
	query     dto.TermReconciliationQuery
	rows      []dto.TermEvaluation
	total     int
	exportErr error
	reviewID  string
	review    dto.ReviewTermRequest
	reviewErr error
	actor     *models.JWTClaims
}

func (m *termServiceMock) Evaluate(ctx context.Context, req dto.EvaluateTermRequest) (*dto.TermEvaluation, error) {
	return &dto.TermEvaluation{
		CourseCode:     req.CourseCode,
		IsTerm1Student: true,
		SuggestedTerm:  eligibility.Term1,
		Correctness:    eligibility.Compatible,
	}, nil
}

func (m *termServiceMock) List(ctx context.Context, query dto.TermReconciliationQuery) ([]dto.TermEvaluation, int, error) {
	m.query = query
	return m.rows, m.total, nil
}

func (m *termServiceMock) Summary(ctx context.Context, query dto.TermReconciliationQuery) (*dto.TermReconciliationSummary, error) {
	m.query = query
	return &dto.TermReconciliationSummary{Total: 3, Compatible: 2, Incompatible: 1}, nil
}

func (m *termServiceMock) Export(ctx context.Context, query dto.TermReconciliationQuery) (*dto.ExportFile, error) {
	m.query = query
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	return &dto.ExportFile{Filename: "term-reconciliation.csv", ContentType: "text/csv", Payload: []byte("Student\n")}, nil
}

func (m *termServiceMock) Review(ctx context.Context, id string, req dto.ReviewTermRequest, actor *models.JWTClaims) (*dto.TermEvaluation, error) {
	m.reviewID = id
	m.review = req
	m.actor = actor
	if m.reviewErr != nil {
		return nil, m.reviewErr
	}
	return &dto.TermEvaluation{EnrollmentID: id, TermChecked: *req.Checked}, nil
}

func TestTermHandlerEvaluate(t *testing.T) {
	handler := NewTermHandler(&termServiceMock{})
	c, w := newGinContext(http.MethodPost, "/terms/evaluate", []byte(`{"course_code":"MATH30-1","status":"Completed","exit_date":"2025-01-10"}`))
	withUser(c, models.RoleStaff)

	handler.Evaluate(c)
	require.Equal(t, http.StatusOK, w.Code)
	data, _ := decodeEnvelope(t, w)
	assert.Equal(t, "Term 1", data["suggested_term"])
	assert.Equal(t, "compatible", data["correctness"])
}

func TestTermHandlerListBindsQueryAndPaginates(t *testing.T) {
	svc := &termServiceMock{rows: []dto.TermEvaluation{{EnrollmentID: "e1"}}, total: 41}
	handler := NewTermHandler(svc)
	c, w := newGinContext(http.MethodGet, "/terms/reconciliation?school_year=24/25&mismatch_only=true&page=2&page_size=20", nil)
	withUser(c, models.RoleStaff)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "24/25", svc.query.SchoolYear)
	assert.True(t, svc.query.MismatchOnly)
	assert.False(t, svc.query.UncheckedOnly)
	_, page := decodeEnvelope(t, w)
	require.NotNil(t, page)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 41, page.TotalCount)
}

func TestTermHandlerListRejectsBadQuery(t *testing.T) {
	handler := NewTermHandler(&termServiceMock{})
	c, w := newGinContext(http.MethodGet, "/terms/reconciliation?page=abc", nil)

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTermHandlerSummary(t *testing.T) {
	handler := NewTermHandler(&termServiceMock{})
	c, w := newGinContext(http.MethodGet, "/terms/reconciliation/summary", nil)

	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	data, _ := decodeEnvelope(t, w)
	assert.EqualValues(t, 3, data["total"])
}

func TestTermHandlerExportStreamsAttachment(t *testing.T) {
	svc := &termServiceMock{}
	handler := NewTermHandler(svc)
	c, w := newGinContext(http.MethodGet, "/terms/reconciliation/export?format=csv", nil)

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.query.Format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "term-reconciliation.csv")
	assert.Equal(t, "Student\n", w.Body.String())
}

func TestTermHandlerExportUnsupportedFormat(t *testing.T) {
	handler := NewTermHandler(&termServiceMock{exportErr: appErrors.ErrUnsupportedFormat})
	c, w := newGinContext(http.MethodGet, "/terms/reconciliation/export?format=xlsx", nil)

	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTermHandlerReview(t *testing.T) {
	svc := &termServiceMock{}
	handler := NewTermHandler(svc)
	c, w := newGinContext(http.MethodPut, "/terms/reconciliation/enr-1/review", []byte(`{"checked":true,"term_override":"Term 2"}`))
	c.Params = []gin.Param{{Key: "id", Value: "enr-1"}}
	claims := withUser(c, models.RoleStaff)

	handler.Review(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "enr-1", svc.reviewID)
	require.NotNil(t, svc.review.TermOverride)
	assert.Equal(t, "Term 2", *svc.review.TermOverride)
	assert.Same(t, claims, svc.actor)
}

func TestTermHandlerReviewEditingDisabled(t *testing.T) {
	handler := NewTermHandler(&termServiceMock{reviewErr: appErrors.Clone(appErrors.ErrForbidden, "term editing is disabled")})
	c, w := newGinContext(http.MethodPut, "/terms/reconciliation/enr-1/review", []byte(`{"checked":true,"term_override":"Term 1"}`))
	c.Params = []gin.Param{{Key: "id", Value: "enr-1"}}
	withUser(c, models.RoleStaff)

	handler.Review(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type termMappingServiceMock struct {
	payload    dto.TermMappingPayload
	replaceErr error
}

func (m *termMappingServiceMock) Get(ctx context.Context) (*dto.TermMappingResponse, error) {
	return &dto.TermMappingResponse{Mappings: map[string][]string{"Term 1": {"Fall"}, "Term 2": {"Spring"}}}, nil
}

func (m *termMappingServiceMock) Replace(ctx context.Context, payload dto.TermMappingPayload, actor *models.JWTClaims) (*dto.TermMappingResponse, error) {
	m.payload = payload
	if m.replaceErr != nil {
		return nil, m.replaceErr
	}
	return &dto.TermMappingResponse{Mappings: payload.Mappings}, nil
}

func TestTermMappingHandlerGet(t *testing.T) {
	handler := NewTermMappingHandler(&termMappingServiceMock{})
	c, w := newGinContext(http.MethodGet, "/terms/mappings", nil)

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	data, _ := decodeEnvelope(t, w)
	mappings := data["mappings"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Fall"}, mappings["Term 1"])
}

func TestTermMappingHandlerReplace(t *testing.T) {
	svc := &termMappingServiceMock{}
	handler := NewTermMappingHandler(svc)
	c, w := newGinContext(http.MethodPut, "/terms/mappings", []byte(`{"mappings":{"Term 1":["Fall","Semester 1"]}}`))
	withUser(c, models.RoleAdmin)

	handler.Replace(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Fall", "Semester 1"}, svc.payload.Mappings["Term 1"])
}

func TestTermMappingHandlerReplaceInvalid(t *testing.T) {
	handler := NewTermMappingHandler(&termMappingServiceMock{replaceErr: appErrors.ErrInvalidMapping})
	c, w := newGinContext(http.MethodPut, "/terms/mappings", []byte(`{"mappings":{"Term 3":["Fall"]}}`))
	withUser(c, models.RoleAdmin)

	handler.Replace(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
