package models

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
)

// CourseEnrollment is a student's course registration together with the term PASI reports for it.
// ExitDate is kept as the raw source value: a date string or a millisecond timestamp.
// Nullable columns serialise as JSON null when unset.
type CourseEnrollment struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	StudentName  string     `db:"student_name" json:"student_name"`
	ASN          string     `db:"asn" json:"asn"`
	CourseCode   string     `db:"course_code" json:"course_code"`
	CourseName   string     `db:"course_name" json:"course_name"`
	SchoolYear   string     `db:"school_year" json:"school_year"`
	Status       string     `db:"status" json:"status"`
	ExitDate     null.String `db:"exit_date" json:"exit_date"`
	PasiTerm     null.String `db:"pasi_term" json:"pasi_term"`
	YourWayTerm  null.String `db:"your_way_term" json:"your_way_term"`
	StatusValue  null.String `db:"status_value" json:"status_value"`
	TermOverride null.String `db:"term_override" json:"term_override"`
	TermChecked  bool        `db:"term_checked" json:"term_checked"`
	CheckedBy    null.String `db:"checked_by" json:"checked_by"`
	CheckedAt    null.Time   `db:"checked_at" json:"checked_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// Record projects the enrollment onto the fields the term rules read.
func (e CourseEnrollment) Record() eligibility.EnrollmentRecord {
	return eligibility.EnrollmentRecord{
		CourseCode:   e.CourseCode,
		ExitDate:     e.ExitDate.String,
		Status:       e.Status,
		PasiTerm:     e.PasiTerm.String,
		YourWayTerm:  e.YourWayTerm.String,
		StatusValue:  e.StatusValue.String,
		TermOverride: e.TermOverride.String,
	}
}

// CourseEnrollmentFilter narrows reconciliation listings.
type CourseEnrollmentFilter struct {
	SchoolYear    string
	CourseCode    string
	Status        string
	PasiTerm      string
	UncheckedOnly bool
	Page          int
	PageSize      int
}

// TermReview is a staff decision recorded against an enrollment.
type TermReview struct {
	EnrollmentID string
	Checked      bool
	Override     *string
	ReviewedBy   *string
	ReviewedAt   time.Time
}
