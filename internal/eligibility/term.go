package eligibility

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Term labels used by the internal records and the term mapping table.
const (
	Term1      = "Term 1"
	Term2      = "Term 2"
	TermNotApp = "N/A"
)

// StatusCompleted marks an enrollment the student has finished.
const StatusCompleted = "Completed"

// DefaultTermCutoff is the first day counted as Term 2.
const DefaultTermCutoff = "2025-01-30"

// dateLayouts lists the textual date formats accepted for exit and cutoff dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// minValidYear guards against zero or garbage timestamps.
const minValidYear = 1971

// EnrollmentRecord is the subset of a course enrollment the term rules look at.
type EnrollmentRecord struct {
	CourseCode   string `json:"course_code"`
	ExitDate     string `json:"exit_date"`
	Status       string `json:"status"`
	PasiTerm     string `json:"pasi_term"`
	YourWayTerm  string `json:"your_way_term"`
	StatusValue  string `json:"status_value"`
	TermOverride string `json:"term_override"`
}

// Editable reports whether the record may be shown in the term editing UI.
func (r EnrollmentRecord) Editable() bool {
	return r.StatusValue != ""
}

// TermMapping maps a logical term to the PASI term strings accepted for it.
type TermMapping map[string][]string

// Empty reports whether no mapping has been loaded.
func (m TermMapping) Empty() bool {
	for _, values := range m {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// Accepts reports whether pasiTerm is listed under term.
func (m TermMapping) Accepts(term, pasiTerm string) bool {
	for _, candidate := range m[term] {
		if candidate == pasiTerm {
			return true
		}
	}
	return false
}

// Compatibility is the three-valued outcome of a term compatibility check.
type Compatibility int

const (
	CompatibilityUnknown Compatibility = iota
	Compatible
	Incompatible
)

func (c Compatibility) String() string {
	switch c {
	case Compatible:
		return "compatible"
	case Incompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the compatibility as its string label.
func (c Compatibility) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a string label, treating anything unrecognised as unknown.
func (c *Compatibility) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ParseCompatibility(raw)
	return nil
}

// ParseCompatibility maps a label back to its value.
func ParseCompatibility(raw string) Compatibility {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "compatible":
		return Compatible
	case "incompatible":
		return Incompatible
	default:
		return CompatibilityUnknown
	}
}

func compatibilityOf(ok bool) Compatibility {
	if ok {
		return Compatible
	}
	return Incompatible
}

// TermClassification is the outcome of ClassifyStudentTerm.
type TermClassification struct {
	IsTerm1Student bool   `json:"is_term1_student"`
	SuggestedTerm  string `json:"suggested_term"`
}

// TermEvaluator applies the term rules in a fixed calendar location.
type TermEvaluator struct {
	location *time.Location
}

// NewTermEvaluator builds an evaluator. A nil location means UTC.
func NewTermEvaluator(loc *time.Location) *TermEvaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &TermEvaluator{location: loc}
}

// ClassifyStudentTerm buckets a completed enrollment into Term 1 or Term 2 by exit date.
// Anything that cannot be classified lands in Term 2.
func (e *TermEvaluator) ClassifyStudentTerm(record EnrollmentRecord, cutoffDate string) TermClassification {
	term1 := e.isTerm1Student(record, cutoffDate)
	suggested := Term2
	if term1 {
		suggested = Term1
	}
	return TermClassification{IsTerm1Student: term1, SuggestedTerm: suggested}
}

func (e *TermEvaluator) isTerm1Student(record EnrollmentRecord, cutoffDate string) bool {
	if record.Status != StatusCompleted {
		return false
	}
	if !IsValidDateValue(record.ExitDate) {
		return false
	}
	exit, ok := e.ParseDate(record.ExitDate)
	if !ok {
		return false
	}
	cutoff, ok := e.ParseDate(cutoffDate)
	if !ok {
		return false
	}
	return exit.Before(cutoff)
}

// SuggestedTerm returns the manual override when one is set, otherwise the classified term.
func (e *TermEvaluator) SuggestedTerm(record EnrollmentRecord, cutoffDate string) string {
	if override := strings.TrimSpace(record.TermOverride); override != "" {
		return override
	}
	return e.ClassifyStudentTerm(record, cutoffDate).SuggestedTerm
}

// IsCorrectTerm decides whether the record's term agrees with PASI. Terms outside
// Term 1/Term 2 are only correct for courses missing from the known course list.
func (e *TermEvaluator) IsCorrectTerm(record EnrollmentRecord, cutoffDate string, mapping TermMapping, isValidCourse bool) Compatibility {
	suggested := e.SuggestedTerm(record, cutoffDate)
	if suggested == Term1 || suggested == Term2 {
		return IsTermCompatible(suggested, record.PasiTerm, mapping)
	}
	return compatibilityOf(!isValidCourse)
}

// ParseDate reads a date value and truncates it to a calendar day in the evaluator's location.
// Numeric values are millisecond timestamps.
func (e *TermEvaluator) ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if ms, ok := parseTimestamp(raw); ok {
		return e.day(time.UnixMilli(ms).In(e.location)), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, e.location); err == nil {
			return e.day(t.In(e.location)), true
		}
	}
	return time.Time{}, false
}

func (e *TermEvaluator) day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.location)
}

// IsTermCompatible checks the suggested term against PASI's term using the mapping.
// An empty mapping yields CompatibilityUnknown.
func IsTermCompatible(suggestedTerm, pasiTerm string, mapping TermMapping) Compatibility {
	if mapping.Empty() {
		return CompatibilityUnknown
	}
	switch suggestedTerm {
	case Term1, Term2:
		return compatibilityOf(mapping.Accepts(suggestedTerm, pasiTerm))
	default:
		return Incompatible
	}
}

// CheckTermCompatibility compares the term declared internally with PASI's term.
func CheckTermCompatibility(yourWayTerm, pasiTerm string, mappings TermMapping) bool {
	if yourWayTerm == TermNotApp {
		return true
	}
	if yourWayTerm == "" || pasiTerm == "" {
		return false
	}
	return mappings.Accepts(yourWayTerm, pasiTerm)
}

// IsValidDateValue filters the placeholder values the source data uses for "no date".
func IsValidDateValue(raw string) bool {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "-", TermNotApp:
		return false
	}
	if ms, ok := parseTimestamp(raw); ok {
		return time.UnixMilli(ms).UTC().Year() >= minValidYear
	}
	return true
}

func parseTimestamp(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if (r < '0' || r > '9') && r != '-' {
			return 0, false
		}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
