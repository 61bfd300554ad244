package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
	"github.com/rtdacademy/rtd-connect-api/pkg/export"
	"github.com/rtdacademy/rtd-connect-api/pkg/validation"
)

// Terms a reviewer may pin an enrollment to.
const (
	TermFullYear = "Full Year"
	TermSummer   = "Summer"
)

var allowedOverrides = map[string]struct{}{
	eligibility.Term1: {},
	eligibility.Term2: {},
	TermFullYear:      {},
	TermSummer:        {},
}

var reconciliationHeaders = []string{
	"Student", "ASN", "Course", "School Year", "Status", "Exit Date", "PASI Term",
	"YourWay Term", "Suggested Term", "Override", "Compatibility", "Correctness", "Checked",
}

type enrollmentRepository interface {
	List(ctx context.Context, filter models.CourseEnrollmentFilter) ([]models.CourseEnrollment, int, error)
	ListAll(ctx context.Context, filter models.CourseEnrollmentFilter) ([]models.CourseEnrollment, error)
	FindByID(ctx context.Context, id string) (*models.CourseEnrollment, error)
	UpdateReview(ctx context.Context, review models.TermReview) error
}

type courseRepository interface {
	ListActive(ctx context.Context) ([]models.Course, error)
}

type termMappingProvider interface {
	Mapping(ctx context.Context) (eligibility.TermMapping, error)
}

type termSettings interface {
	TermCutoffDate(ctx context.Context) (string, error)
	TermEditingEnabled(ctx context.Context) (bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TermReconciliationConfig wires optional collaborators.
type TermReconciliationConfig struct {
	Cache     *CacheService
	CourseTTL time.Duration
	Metrics   *MetricsService
	CSV       csvRenderer
	PDF       pdfRenderer
	Now       func() time.Time
}

// TermReconciliationService compares internal enrollment terms with PASI and records staff reviews.
type TermReconciliationService struct {
	enrollments enrollmentRepository
	courses     courseRepository
	mappings    termMappingProvider
	settings    termSettings
	evaluator   *eligibility.TermEvaluator
	cache       *CacheService
	courseTTL   time.Duration
	metrics     *MetricsService
	csv         csvRenderer
	pdf         pdfRenderer
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewTermReconciliationService constructs the service.
func NewTermReconciliationService(enrollments enrollmentRepository, courses courseRepository, mappings termMappingProvider, settings termSettings, evaluator *eligibility.TermEvaluator, validate *validator.Validate, logger *zap.Logger, cfg TermReconciliationConfig) *TermReconciliationService {
	if evaluator == nil {
		evaluator = eligibility.NewTermEvaluator(time.UTC)
	}
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CSV == nil {
		cfg.CSV = export.NewCSVExporter()
	}
	if cfg.PDF == nil {
		cfg.PDF = export.NewPDFExporter()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TermReconciliationService{
		enrollments: enrollments,
		courses:     courses,
		mappings:    mappings,
		settings:    settings,
		evaluator:   evaluator,
		cache:       cfg.Cache,
		courseTTL:   cfg.CourseTTL,
		metrics:     cfg.Metrics,
		csv:         cfg.CSV,
		pdf:         cfg.PDF,
		validator:   validate,
		logger:      logger,
		now:         cfg.Now,
	}
}

// evaluationContext holds the inputs shared by every record of one request.
type evaluationContext struct {
	cutoff  string
	mapping eligibility.TermMapping
	courses map[string]struct{}
}

// Evaluate runs an ad hoc record through the term rules.
func (s *TermReconciliationService) Evaluate(ctx context.Context, req dto.EvaluateTermRequest) (*dto.TermEvaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err, "invalid term evaluation payload")
	}
	ec, err := s.context(ctx)
	if err != nil {
		return nil, err
	}
	if req.CutoffDate != "" {
		ec.cutoff = req.CutoffDate
	}
	evaluation := s.evaluate(ec, req.Record())
	return &evaluation, nil
}

// List evaluates one page of enrollments. With MismatchOnly the page is taken from the
// incompatible records only, so the whole filtered set is evaluated first.
func (s *TermReconciliationService) List(ctx context.Context, query dto.TermReconciliationQuery) ([]dto.TermEvaluation, int, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, 0, invalidRequest(err, "invalid reconciliation query")
	}
	ec, err := s.context(ctx)
	if err != nil {
		return nil, 0, err
	}
	filter := toEnrollmentFilter(query)

	if !query.MismatchOnly {
		rows, total, err := s.enrollments.List(ctx, filter)
		if err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
		}
		return s.evaluateAll(ec, rows), total, nil
	}

	evaluations, err := s.evaluateFiltered(ctx, ec, query)
	if err != nil {
		return nil, 0, err
	}
	page, size := pageBounds(query.Page, query.PageSize)
	start := (page - 1) * size
	if start >= len(evaluations) {
		return []dto.TermEvaluation{}, len(evaluations), nil
	}
	end := start + size
	if end > len(evaluations) {
		end = len(evaluations)
	}
	return evaluations[start:end], len(evaluations), nil
}

// Summary counts outcomes over every enrollment matching the query.
func (s *TermReconciliationService) Summary(ctx context.Context, query dto.TermReconciliationQuery) (*dto.TermReconciliationSummary, error) {
	ec, err := s.context(ctx)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.evaluateFiltered(ctx, ec, query)
	if err != nil {
		return nil, err
	}
	summary := &dto.TermReconciliationSummary{CutoffDate: ec.cutoff, Total: len(evaluations)}
	for _, e := range evaluations {
		switch e.Correctness {
		case eligibility.Compatible:
			summary.Compatible++
		case eligibility.Incompatible:
			summary.Incompatible++
		default:
			summary.Unknown++
		}
		if e.IsTerm1Student {
			summary.Term1Students++
		}
		if e.TermChecked {
			summary.Checked++
		}
		if !e.YourWayMatchesPasi {
			summary.YourWayMismatch++
		}
	}
	return summary, nil
}

// Export renders the evaluated rows as csv or pdf.
func (s *TermReconciliationService) Export(ctx context.Context, query dto.TermReconciliationQuery) (*dto.ExportFile, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", query.Format))
	}
	ec, err := s.context(ctx)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.evaluateFiltered(ctx, ec, query)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: reconciliationHeaders, Rows: make([]map[string]string, 0, len(evaluations))}
	for _, e := range evaluations {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":        e.StudentName,
			"ASN":            e.ASN,
			"Course":         e.CourseCode,
			"School Year":    e.SchoolYear,
			"Status":         e.Status,
			"Exit Date":      e.ExitDate,
			"PASI Term":      e.PasiTerm,
			"YourWay Term":   e.YourWayTerm,
			"Suggested Term": e.SuggestedTerm,
			"Override":       e.TermOverride,
			"Compatibility":  e.Compatibility.String(),
			"Correctness":    e.Correctness.String(),
			"Checked":        strconv.FormatBool(e.TermChecked),
		})
	}

	stamp := s.now().UTC().Format("20060102-150405")
	if format == "pdf" {
		title := fmt.Sprintf("PASI term reconciliation (cutoff %s)", ec.cutoff)
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &dto.ExportFile{Filename: "term-reconciliation-" + stamp + ".pdf", ContentType: "application/pdf", Payload: payload}, nil
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &dto.ExportFile{Filename: "term-reconciliation-" + stamp + ".csv", ContentType: "text/csv", Payload: payload}, nil
}

// Review records a staff decision. A non-empty override requires term editing to be enabled
// and the enrollment to carry a status value.
func (s *TermReconciliationService) Review(ctx context.Context, id string, req dto.ReviewTermRequest, actor *models.JWTClaims) (*dto.TermEvaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err, "invalid review payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	override := enrollment.TermOverride.Ptr()
	if req.TermOverride != nil {
		value := strings.TrimSpace(*req.TermOverride)
		if value != "" {
			if _, ok := allowedOverrides[value]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported term override %q", value))
			}
			enabled, err := s.settings.TermEditingEnabled(ctx)
			if err != nil {
				return nil, err
			}
			if !enabled {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "term editing is disabled")
			}
			if !enrollment.Record().Editable() {
				return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment has no status value and cannot be overridden")
			}
		}
		override = strPtr(value)
	}

	review := models.TermReview{
		EnrollmentID: id,
		Checked:      *req.Checked,
		Override:     override,
		ReviewedBy:   userIDPtr(actor),
		ReviewedAt:   s.now().UTC(),
	}
	if err := s.enrollments.UpdateReview(ctx, review); err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save review")
	}
	s.logger.Info("term review recorded",
		zap.String("enrollment_id", id),
		zap.Bool("checked", review.Checked),
		zap.Stringp("override", override),
		zap.String("actor", actor.UserID),
	)

	enrollment.TermChecked = review.Checked
	enrollment.TermOverride = null.StringFromPtr(override)
	enrollment.CheckedBy = null.StringFromPtr(review.ReviewedBy)
	enrollment.CheckedAt = null.TimeFrom(review.ReviewedAt)

	ec, err := s.context(ctx)
	if err != nil {
		return nil, err
	}
	evaluation := s.evaluateEnrollment(ec, *enrollment)
	return &evaluation, nil
}

func (s *TermReconciliationService) context(ctx context.Context) (evaluationContext, error) {
	cutoff, err := s.settings.TermCutoffDate(ctx)
	if err != nil {
		return evaluationContext{}, err
	}
	mapping, err := s.mappings.Mapping(ctx)
	if err != nil {
		return evaluationContext{}, err
	}
	courses, err := s.validCourses(ctx)
	if err != nil {
		return evaluationContext{}, err
	}
	return evaluationContext{cutoff: cutoff, mapping: mapping, courses: courses}, nil
}

func (s *TermReconciliationService) validCourses(ctx context.Context) (map[string]struct{}, error) {
	var codes []string
	if hit, _ := s.cache.Get(ctx, cacheKeyActiveCourse, &codes); !hit {
		courses, err := s.courses.ListActive(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course list")
		}
		codes = make([]string, 0, len(courses))
		for _, course := range courses {
			codes = append(codes, course.Code)
		}
		_ = s.cache.Set(ctx, cacheKeyActiveCourse, codes, s.courseTTL)
	}
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set, nil
}

func (s *TermReconciliationService) evaluateFiltered(ctx context.Context, ec evaluationContext, query dto.TermReconciliationQuery) ([]dto.TermEvaluation, error) {
	rows, err := s.enrollments.ListAll(ctx, toEnrollmentFilter(query))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	evaluations := s.evaluateAll(ec, rows)
	if !query.MismatchOnly {
		return evaluations, nil
	}
	mismatches := make([]dto.TermEvaluation, 0, len(evaluations))
	for _, e := range evaluations {
		if e.Correctness == eligibility.Incompatible {
			mismatches = append(mismatches, e)
		}
	}
	return mismatches, nil
}

func (s *TermReconciliationService) evaluateAll(ec evaluationContext, rows []models.CourseEnrollment) []dto.TermEvaluation {
	evaluations := make([]dto.TermEvaluation, 0, len(rows))
	for _, row := range rows {
		evaluations = append(evaluations, s.evaluateEnrollment(ec, row))
	}
	return evaluations
}

func (s *TermReconciliationService) evaluateEnrollment(ec evaluationContext, enrollment models.CourseEnrollment) dto.TermEvaluation {
	e := s.evaluate(ec, enrollment.Record())
	e.EnrollmentID = enrollment.ID
	e.StudentID = enrollment.StudentID
	e.StudentName = enrollment.StudentName
	e.ASN = enrollment.ASN
	e.CourseName = enrollment.CourseName
	e.SchoolYear = enrollment.SchoolYear
	e.TermChecked = enrollment.TermChecked
	return e
}

func (s *TermReconciliationService) evaluate(ec evaluationContext, record eligibility.EnrollmentRecord) dto.TermEvaluation {
	_, validCourse := ec.courses[record.CourseCode]
	classification := s.evaluator.ClassifyStudentTerm(record, ec.cutoff)
	suggested := s.evaluator.SuggestedTerm(record, ec.cutoff)
	correctness := s.evaluator.IsCorrectTerm(record, ec.cutoff, ec.mapping, validCourse)
	s.metrics.RecordTermEvaluation(correctness.String())

	return dto.TermEvaluation{
		CourseCode:         record.CourseCode,
		Status:             record.Status,
		ExitDate:           record.ExitDate,
		PasiTerm:           record.PasiTerm,
		YourWayTerm:        record.YourWayTerm,
		TermOverride:       record.TermOverride,
		Editable:           record.Editable(),
		ValidCourse:        validCourse,
		IsTerm1Student:     classification.IsTerm1Student,
		SuggestedTerm:      suggested,
		Compatibility:      eligibility.IsTermCompatible(suggested, record.PasiTerm, ec.mapping),
		Correctness:        correctness,
		YourWayMatchesPasi: eligibility.CheckTermCompatibility(record.YourWayTerm, record.PasiTerm, ec.mapping),
		CutoffDate:         ec.cutoff,
	}
}

func toEnrollmentFilter(query dto.TermReconciliationQuery) models.CourseEnrollmentFilter {
	return models.CourseEnrollmentFilter{
		SchoolYear:    query.SchoolYear,
		CourseCode:    query.CourseCode,
		Status:        query.Status,
		PasiTerm:      query.PasiTerm,
		UncheckedOnly: query.UncheckedOnly,
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	return page, size
}
