package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rtdacademy/rtd-connect-api/internal/dto"
	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	appErrors "github.com/rtdacademy/rtd-connect-api/pkg/errors"
	"github.com/rtdacademy/rtd-connect-api/pkg/jobs"
	"github.com/rtdacademy/rtd-connect-api/pkg/validation"
)

// JobTypeFundingRecompute identifies queued funding recompute jobs.
const JobTypeFundingRecompute = "funding.recompute"

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListActive(ctx context.Context) ([]models.Student, error)
	SaveFundingSnapshots(ctx context.Context, snapshots []models.FundingSnapshot) error
}

type fundingSettings interface {
	FundingSchoolYear(ctx context.Context) (string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (string, error)
}

type recomputePayload struct {
	SchoolYear  string
	RequestedBy string
}

// FundingServiceConfig wires optional collaborators.
type FundingServiceConfig struct {
	Metrics *MetricsService
	Now     func() time.Time
}

// FundingService evaluates home education funding eligibility and keeps student snapshots current.
type FundingService struct {
	students  studentRepository
	settings  fundingSettings
	evaluator *eligibility.FundingEvaluator
	queue     jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFundingService constructs a FundingService.
func NewFundingService(students studentRepository, settings fundingSettings, evaluator *eligibility.FundingEvaluator, validate *validator.Validate, logger *zap.Logger, cfg FundingServiceConfig) *FundingService {
	if evaluator == nil {
		evaluator = eligibility.NewFundingEvaluator(eligibility.DefaultFundingRates())
	}
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &FundingService{
		students:  students,
		settings:  settings,
		evaluator: evaluator,
		metrics:   cfg.Metrics,
		validator: validate,
		logger:    logger,
		now:       cfg.Now,
	}
}

// AttachQueue sets the queue used by EnqueueRecompute. The queue's handler is usually HandleJob,
// so it is attached after construction.
func (s *FundingService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Determine evaluates an ad hoc birthday.
func (s *FundingService) Determine(ctx context.Context, req dto.FundingEligibilityRequest) (*eligibility.FundingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err, "invalid funding eligibility payload")
	}
	schoolYear, err := s.schoolYear(ctx, req.SchoolYear)
	if err != nil {
		return nil, err
	}
	result := s.evaluator.Determine(req.Birthday, schoolYear, s.now())
	s.metrics.RecordFundingDetermination(string(result.AgeCategory), result.FundingEligible)
	return &result, nil
}

// ForStudent evaluates a stored student. Parents may only look up students of their own family.
func (s *FundingService) ForStudent(ctx context.Context, studentID, schoolYear string, actor *models.JWTClaims) (*dto.StudentFundingResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if actor != nil && actor.Role == models.RoleParent && (actor.FamilyID == "" || actor.FamilyID != student.FamilyID) {
		return nil, appErrors.ErrForbidden
	}
	schoolYear, err = s.schoolYear(ctx, schoolYear)
	if err != nil {
		return nil, err
	}
	now := s.now()
	result := s.evaluator.Determine(student.BirthDateString(), schoolYear, now)
	s.metrics.RecordFundingDetermination(string(result.AgeCategory), result.FundingEligible)
	return &dto.StudentFundingResponse{
		StudentID:     student.ID,
		SchoolYear:    resolvedSchoolYear(schoolYear, now),
		FundingResult: result,
	}, nil
}

// Recompute evaluates every active student and persists their funding snapshot.
func (s *FundingService) Recompute(ctx context.Context, schoolYear string) (*models.FundingRecomputeSummary, error) {
	started := s.now()
	schoolYear, err := s.schoolYear(ctx, schoolYear)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	code := resolvedSchoolYear(schoolYear, started)
	summary := &models.FundingRecomputeSummary{
		SchoolYear: code,
		Categories: make(map[string]int),
		StartedAt:  started.UTC(),
	}
	total := decimal.Zero
	snapshots := make([]models.FundingSnapshot, 0, len(students))
	for _, student := range students {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := s.evaluator.Determine(student.BirthDateString(), schoolYear, started)
		s.metrics.RecordFundingDetermination(string(result.AgeCategory), result.FundingEligible)
		snapshots = append(snapshots, models.FundingSnapshot{
			StudentID:   student.ID,
			Eligible:    result.FundingEligible,
			Amount:      result.FundingAmount,
			AgeCategory: string(result.AgeCategory),
			Grade:       result.Grade,
			SchoolYear:  code,
			CheckedAt:   started.UTC(),
		})
		summary.Evaluated++
		summary.Categories[string(result.AgeCategory)]++
		if result.FundingEligible {
			summary.Eligible++
			total = total.Add(result.FundingAmount)
		}
	}
	if err := s.students.SaveFundingSnapshots(ctx, snapshots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save funding snapshots")
	}

	summary.Total = total.StringFixed(2)
	summary.FinishedAt = s.now().UTC()
	s.metrics.ObserveFundingRecompute(summary.Evaluated, summary.FinishedAt.Sub(summary.StartedAt))
	s.logger.Info("funding recompute finished",
		zap.String("school_year", code),
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("eligible", summary.Eligible),
		zap.String("total_funding", summary.Total),
	)
	return summary, nil
}

// EnqueueRecompute queues a recompute for background processing.
func (s *FundingService) EnqueueRecompute(ctx context.Context, req dto.RecomputeFundingRequest, actor *models.JWTClaims) (*dto.RecomputeAccepted, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidRequest(err, "invalid recompute payload")
	}
	if s.queue == nil {
		return nil, appErrors.ErrQueueUnavailable
	}
	payload := recomputePayload{SchoolYear: req.SchoolYear}
	if actor != nil {
		payload.RequestedBy = actor.UserID
	}
	id, err := s.queue.Enqueue(jobs.Job{Type: JobTypeFundingRecompute, Payload: payload})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrQueueUnavailable.Code, appErrors.ErrQueueUnavailable.Status, "failed to queue funding recompute")
	}
	s.logger.Info("funding recompute queued", zap.String("job_id", id), zap.String("requested_by", payload.RequestedBy))

	schoolYear, err := s.schoolYear(ctx, req.SchoolYear)
	if err != nil {
		schoolYear = req.SchoolYear
	}
	return &dto.RecomputeAccepted{JobID: id, SchoolYear: resolvedSchoolYear(schoolYear, s.now()), Status: "queued"}, nil
}

// HandleJob is the queue handler for funding recompute jobs.
func (s *FundingService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeFundingRecompute {
		return fmt.Errorf("unsupported job type %s", job.Type)
	}
	payload, _ := job.Payload.(recomputePayload)
	_, err := s.Recompute(ctx, payload.SchoolYear)
	return err
}

// ScheduledRecompute is the cron entry point; it queues when a queue is attached and runs inline otherwise.
func (s *FundingService) ScheduledRecompute(ctx context.Context) {
	if s.queue != nil {
		if _, err := s.queue.Enqueue(jobs.Job{Type: JobTypeFundingRecompute, Payload: recomputePayload{RequestedBy: "scheduler"}}); err != nil {
			s.logger.Error("scheduled funding recompute not queued", zap.Error(err))
		}
		return
	}
	if _, err := s.Recompute(ctx, ""); err != nil {
		s.logger.Error("scheduled funding recompute failed", zap.Error(err))
	}
}

func (s *FundingService) schoolYear(ctx context.Context, requested string) (string, error) {
	if requested != "" || s.settings == nil {
		return requested, nil
	}
	return s.settings.FundingSchoolYear(ctx)
}

func resolvedSchoolYear(schoolYear string, now time.Time) string {
	return eligibility.SchoolYearCode(eligibility.RegistrationYear(schoolYear, now))
}
