package dto

import (
	"time"

	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
)

// EvaluateTermRequest is an ad hoc enrollment record to run through the term rules.
type EvaluateTermRequest struct {
	CourseCode   string `json:"course_code" validate:"max=32"`
	ExitDate     string `json:"exit_date" validate:"max=64"`
	Status       string `json:"status" validate:"max=64"`
	PasiTerm     string `json:"pasi_term" validate:"max=64"`
	YourWayTerm  string `json:"your_way_term" validate:"max=64"`
	StatusValue  string `json:"status_value" validate:"max=64"`
	TermOverride string `json:"term_override" validate:"max=32"`
	CutoffDate   string `json:"cutoff_date" validate:"omitempty,datetime=2006-01-02"`
}

// Record converts the request into the evaluator input.
func (r EvaluateTermRequest) Record() eligibility.EnrollmentRecord {
	return eligibility.EnrollmentRecord{
		CourseCode:   r.CourseCode,
		ExitDate:     r.ExitDate,
		Status:       r.Status,
		PasiTerm:     r.PasiTerm,
		YourWayTerm:  r.YourWayTerm,
		StatusValue:  r.StatusValue,
		TermOverride: r.TermOverride,
	}
}

// TermEvaluation is one enrollment with its computed term reconciliation.
type TermEvaluation struct {
	EnrollmentID       string                    `json:"enrollment_id,omitempty"`
	StudentID          string                    `json:"student_id,omitempty"`
	StudentName        string                    `json:"student_name,omitempty"`
	ASN                string                    `json:"asn,omitempty"`
	CourseCode         string                    `json:"course_code"`
	CourseName         string                    `json:"course_name,omitempty"`
	SchoolYear         string                    `json:"school_year,omitempty"`
	Status             string                    `json:"status"`
	ExitDate           string                    `json:"exit_date"`
	PasiTerm           string                    `json:"pasi_term"`
	YourWayTerm        string                    `json:"your_way_term"`
	TermOverride       string                    `json:"term_override,omitempty"`
	TermChecked        bool                      `json:"term_checked"`
	Editable           bool                      `json:"editable"`
	ValidCourse        bool                      `json:"valid_course"`
	IsTerm1Student     bool                      `json:"is_term1_student"`
	SuggestedTerm      string                    `json:"suggested_term"`
	Compatibility      eligibility.Compatibility `json:"compatibility"`
	Correctness        eligibility.Compatibility `json:"correctness"`
	YourWayMatchesPasi bool                      `json:"your_way_matches_pasi"`
	CutoffDate         string                    `json:"cutoff_date"`
}

// TermReconciliationQuery filters reconciliation listings, summaries and exports.
type TermReconciliationQuery struct {
	SchoolYear    string `form:"school_year"`
	CourseCode    string `form:"course_code"`
	Status        string `form:"status"`
	PasiTerm      string `form:"pasi_term"`
	UncheckedOnly bool   `form:"unchecked_only"`
	MismatchOnly  bool   `form:"mismatch_only"`
	Page          int    `form:"page" validate:"omitempty,min=1"`
	PageSize      int    `form:"page_size" validate:"omitempty,min=1,max=200"`
	Format        string `form:"format"`
}

// TermReconciliationSummary counts evaluated enrollments by outcome.
type TermReconciliationSummary struct {
	CutoffDate      string `json:"cutoff_date"`
	Total           int    `json:"total"`
	Compatible      int    `json:"compatible"`
	Incompatible    int    `json:"incompatible"`
	Unknown         int    `json:"unknown"`
	Term1Students   int    `json:"term1_students"`
	Checked         int    `json:"checked"`
	YourWayMismatch int    `json:"your_way_mismatch"`
}

// ReviewTermRequest records a staff decision on an enrollment's term.
// An empty term_override clears a previous override.
type ReviewTermRequest struct {
	Checked      *bool   `json:"checked" validate:"required"`
	TermOverride *string `json:"term_override"`
}

// TermMappingPayload replaces the whole term mapping table.
type TermMappingPayload struct {
	Mappings map[string][]string `json:"mappings" validate:"required"`
}

// TermMappingResponse is the current mapping table.
type TermMappingResponse struct {
	Mappings  map[string][]string `json:"mappings"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
