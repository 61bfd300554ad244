package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Student is a learner registered under a family, with the last computed funding snapshot.
type Student struct {
	ID                string              `db:"id" json:"id"`
	FamilyID          string              `db:"family_id" json:"family_id"`
	FirstName         string              `db:"first_name" json:"first_name"`
	LastName          string              `db:"last_name" json:"last_name"`
	ASN               *string             `db:"asn" json:"asn,omitempty"`
	BirthDate         *time.Time          `db:"birth_date" json:"birth_date,omitempty"`
	Active            bool                `db:"active" json:"active"`
	FundingEligible   *bool               `db:"funding_eligible" json:"funding_eligible,omitempty"`
	FundingAmount     decimal.NullDecimal `db:"funding_amount" json:"funding_amount"`
	AgeCategory       *string             `db:"age_category" json:"age_category,omitempty"`
	Grade             *string             `db:"grade" json:"grade,omitempty"`
	FundingSchoolYear *string             `db:"funding_school_year" json:"funding_school_year,omitempty"`
	FundingCheckedAt  *time.Time          `db:"funding_checked_at" json:"funding_checked_at,omitempty"`
}

// BirthDateString renders the birth date the way the funding rules expect it.
func (s Student) BirthDateString() string {
	if s.BirthDate == nil || s.BirthDate.IsZero() {
		return ""
	}
	return s.BirthDate.Format("2006-01-02")
}

// FundingSnapshot is the derived funding state persisted on a student.
type FundingSnapshot struct {
	StudentID   string          `db:"student_id"`
	Eligible    bool            `db:"funding_eligible"`
	Amount      decimal.Decimal `db:"funding_amount"`
	AgeCategory string          `db:"age_category"`
	Grade       *string         `db:"grade"`
	SchoolYear  string          `db:"funding_school_year"`
	CheckedAt   time.Time       `db:"funding_checked_at"`
}

// FundingRecomputeSummary reports the outcome of a batch recompute.
type FundingRecomputeSummary struct {
	SchoolYear string         `json:"school_year"`
	Evaluated  int            `json:"evaluated"`
	Eligible   int            `json:"eligible"`
	Categories map[string]int `json:"categories"`
	Total      string         `json:"total_funding"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
