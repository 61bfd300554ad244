package dto

import "github.com/rtdacademy/rtd-connect-api/internal/eligibility"

// FundingEligibilityRequest checks a birthday against the funding rules.
type FundingEligibilityRequest struct {
	Birthday   string `json:"birthday" validate:"max=64"`
	SchoolYear string `json:"school_year" validate:"omitempty,max=16"`
}

// StudentFundingResponse is a funding result for a stored student.
type StudentFundingResponse struct {
	StudentID  string `json:"student_id"`
	SchoolYear string `json:"school_year"`
	eligibility.FundingResult
}

// RecomputeFundingRequest queues a funding snapshot refresh.
type RecomputeFundingRequest struct {
	SchoolYear string `json:"school_year" validate:"omitempty,max=16"`
}

// RecomputeAccepted acknowledges a queued recompute.
type RecomputeAccepted struct {
	JobID      string `json:"job_id"`
	SchoolYear string `json:"school_year"`
	Status     string `json:"status"`
}
