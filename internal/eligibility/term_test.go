package eligibility

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMapping() TermMapping {
	return TermMapping{
		Term1: {"Fall", "Semester 1"},
		Term2: {"Spring", "Semester 2"},
	}
}

func TestClassifyStudentTermRequiresCompletedStatus(t *testing.T) {
	evaluator := NewTermEvaluator(time.UTC)
	for _, status := range []string{"", "Active", "Withdrawn", "completed"} {
		got := evaluator.ClassifyStudentTerm(EnrollmentRecord{Status: status, ExitDate: "2024-12-01"}, DefaultTermCutoff)
		assert.False(t, got.IsTerm1Student, "status %q", status)
		assert.Equal(t, Term2, got.SuggestedTerm)
	}
}

func TestClassifyStudentTermCutoffIsStrict(t *testing.T) {
	evaluator := NewTermEvaluator(time.UTC)
	cases := []struct {
		exit  string
		term1 bool
	}{
		{"2025-01-29", true},
		{"2024-09-15", true},
		{"2025-01-30", false},
		{"2025-06-20", false},
	}
	for _, tc := range cases {
		got := evaluator.ClassifyStudentTerm(EnrollmentRecord{Status: StatusCompleted, ExitDate: tc.exit}, DefaultTermCutoff)
		assert.Equal(t, tc.term1, got.IsTerm1Student, tc.exit)
	}
}

func TestClassifyStudentTermAcceptsTimestamps(t *testing.T) {
	evaluator := NewTermEvaluator(time.UTC)
	exit := time.Date(2025, time.January, 10, 15, 0, 0, 0, time.UTC).UnixMilli()
	got := evaluator.ClassifyStudentTerm(EnrollmentRecord{Status: StatusCompleted, ExitDate: strconv.FormatInt(exit, 10)}, DefaultTermCutoff)
	assert.True(t, got.IsTerm1Student)
	assert.Equal(t, Term1, got.SuggestedTerm)
}

func TestClassifyStudentTermAcceptsSlashAndMinuteLayouts(t *testing.T) {
	evaluator := NewTermEvaluator(time.UTC)
	for _, exit := range []string{"2025/01/15", "2025-01-15 10:00", "2025-01-15T10:00"} {
		require.True(t, IsValidDateValue(exit), exit)
		got := evaluator.ClassifyStudentTerm(EnrollmentRecord{Status: StatusCompleted, ExitDate: exit}, DefaultTermCutoff)
		assert.True(t, got.IsTerm1Student, exit)
		assert.Equal(t, Term1, got.SuggestedTerm, exit)
	}
	got := evaluator.ClassifyStudentTerm(EnrollmentRecord{Status: StatusCompleted, ExitDate: "2025/01/30"}, DefaultTermCutoff)
	assert.False(t, got.IsTerm1Student)
}

func TestClassifyStudentTermComparesCalendarDaysInLocation(t *testing.T) {
	edmonton := time.FixedZone("MST", -7*3600)
	evaluator := NewTermEvaluator(edmonton)
	// 03:00 UTC on the 30th is still the 29th in Edmonton.
	exit := time.Date(2025, time.January, 30, 3, 0, 0, 0, time.UTC).UnixMilli()
	got := evaluator.ClassifyStudentTerm(EnrollmentRecord{Status: StatusCompleted, ExitDate: strconv.FormatInt(exit, 10)}, DefaultTermCutoff)
	assert.True(t, got.IsTerm1Student)
}

func TestClassifyStudentTermInvalidDatesAreNeutral(t *testing.T) {
	evaluator := NewTermEvaluator(time.UTC)
	for _, exit := range []string{"", "-", "N/A", "0", "86400000", "not a date"} {
		got := evaluator.ClassifyStudentTerm(EnrollmentRecord{Status: StatusCompleted, ExitDate: exit}, DefaultTermCutoff)
		assert.False(t, got.IsTerm1Student, "exit %q", exit)
	}
	got := evaluator.ClassifyStudentTerm(EnrollmentRecord{Status: StatusCompleted, ExitDate: "2024-10-01"}, "garbage")
	assert.False(t, got.IsTerm1Student)
}

func TestIsValidDateValue(t *testing.T) {
	assert.False(t, IsValidDateValue(""))
	assert.False(t, IsValidDateValue(" - "))
	assert.False(t, IsValidDateValue("N/A"))
	assert.False(t, IsValidDateValue("0"))
	assert.False(t, IsValidDateValue(strconv.FormatInt(time.Date(1970, time.June, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), 10)))
	assert.True(t, IsValidDateValue(strconv.FormatInt(time.Date(1971, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), 10)))
	assert.True(t, IsValidDateValue("2025-01-15"))
}

func TestIsTermCompatible(t *testing.T) {
	mapping := testMapping()
	assert.Equal(t, Compatible, IsTermCompatible(Term1, "Fall", mapping))
	assert.Equal(t, Incompatible, IsTermCompatible(Term1, "Spring", mapping))
	assert.Equal(t, Compatible, IsTermCompatible(Term2, "Semester 2", mapping))
	assert.Equal(t, Incompatible, IsTermCompatible("Full Year", "Fall", mapping))
	assert.Equal(t, CompatibilityUnknown, IsTermCompatible(Term1, "Fall", nil))
	assert.Equal(t, CompatibilityUnknown, IsTermCompatible(Term1, "Fall", TermMapping{Term1: {}}))
}

func TestIsCorrectTerm(t *testing.T) {
	evaluator := NewTermEvaluator(time.UTC)
	mapping := testMapping()

	record := EnrollmentRecord{Status: StatusCompleted, ExitDate: "2025-01-10", PasiTerm: "Fall", CourseCode: "MATH30-1"}
	assert.Equal(t, Compatible, evaluator.IsCorrectTerm(record, DefaultTermCutoff, mapping, true))

	record.PasiTerm = "Spring"
	assert.Equal(t, Incompatible, evaluator.IsCorrectTerm(record, DefaultTermCutoff, mapping, true))
	assert.Equal(t, CompatibilityUnknown, evaluator.IsCorrectTerm(record, DefaultTermCutoff, TermMapping{}, true))

	record.TermOverride = Term2
	assert.Equal(t, Compatible, evaluator.IsCorrectTerm(record, DefaultTermCutoff, mapping, true))

	record.TermOverride = "Full Year"
	assert.Equal(t, Incompatible, evaluator.IsCorrectTerm(record, DefaultTermCutoff, mapping, true))
	assert.Equal(t, Compatible, evaluator.IsCorrectTerm(record, DefaultTermCutoff, mapping, false))
}

func TestCheckTermCompatibility(t *testing.T) {
	mapping := testMapping()
	assert.True(t, CheckTermCompatibility(TermNotApp, "anything", mapping))
	assert.True(t, CheckTermCompatibility(TermNotApp, "", nil))
	assert.True(t, CheckTermCompatibility(Term1, "Semester 1", mapping))
	assert.False(t, CheckTermCompatibility(Term1, "Semester 2", mapping))
	assert.False(t, CheckTermCompatibility("", "Fall", mapping))
	assert.False(t, CheckTermCompatibility(Term1, "", mapping))
	for _, term := range []string{Term1, Term2, "Summer"} {
		assert.False(t, CheckTermCompatibility(term, "Fall", TermMapping{}), term)
	}
}

func TestCompatibilityJSON(t *testing.T) {
	payload, err := json.Marshal(map[string]Compatibility{"a": Compatible, "b": Incompatible, "c": CompatibilityUnknown})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"compatible","b":"incompatible","c":"unknown"}`, string(payload))

	var decoded Compatibility
	require.NoError(t, json.Unmarshal([]byte(`"incompatible"`), &decoded))
	assert.Equal(t, Incompatible, decoded)
}

func TestTermEvaluatorIsDeterministic(t *testing.T) {
	evaluator := NewTermEvaluator(time.UTC)
	record := EnrollmentRecord{Status: StatusCompleted, ExitDate: "2025-01-10", PasiTerm: "Fall"}
	first := evaluator.IsCorrectTerm(record, DefaultTermCutoff, testMapping(), true)
	second := evaluator.IsCorrectTerm(record, DefaultTermCutoff, testMapping(), true)
	assert.Equal(t, first, second)
	assert.Equal(t, evaluator.ClassifyStudentTerm(record, DefaultTermCutoff), evaluator.ClassifyStudentTerm(record, DefaultTermCutoff))
}
