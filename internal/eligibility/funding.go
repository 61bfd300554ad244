package eligibility

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AgeCategory classifies a student for funding purposes.
type AgeCategory string

const (
	AgeCategoryKindergarten AgeCategory = "kindergarten"
	AgeCategoryGrades1To12  AgeCategory = "grades_1_12"
	AgeCategoryTooYoung     AgeCategory = "too_young"
	AgeCategoryTooOld       AgeCategory = "too_old"
	AgeCategoryUnknown      AgeCategory = "unknown"
)

const (
	kindergartenAge     = 5
	gradeOneAge         = 6
	maxFundedAge        = 20
	minKindergartenMons = 56
	maxGrade            = 12
	approxDaysPerMonth  = 30
	referenceDateLayout = "2006-01-02"
)

var schoolYearPattern = regexp.MustCompile(`^(\d{2}|\d{4})\s*[/-]\s*(\d{2}|\d{4})$`)

// FundingRates are the per-student amounts paid for each funded category.
type FundingRates struct {
	Kindergarten decimal.Decimal
	Grades1To12  decimal.Decimal
}

// DefaultFundingRates returns the home education rates for the current policy year.
func DefaultFundingRates() FundingRates {
	return FundingRates{
		Kindergarten: decimal.RequireFromString("450.50"),
		Grades1To12:  decimal.RequireFromString("901.00"),
	}
}

// AgeBreakdown splits a fractional age into years, approximate months and days.
type AgeBreakdown struct {
	Value  float64 `json:"value"`
	Years  int     `json:"years"`
	Months int     `json:"months"`
	Days   int     `json:"days"`
}

// ReferenceDates are the two dates ages are measured on.
type ReferenceDates struct {
	SeptemberFirst  string `json:"september_first"`
	DecemberThirty1 string `json:"december_31"`
}

// AgeDetails describes the student's age on both reference dates.
type AgeDetails struct {
	AgeOnSept1     AgeBreakdown   `json:"age_on_sept1"`
	AgeOnDec31     AgeBreakdown   `json:"age_on_dec31"`
	ReferenceDates ReferenceDates `json:"reference_dates"`
}

// FundingResult is the outcome of a funding eligibility check.
type FundingResult struct {
	FundingEligible  bool            `json:"funding_eligible"`
	FundingAmount    decimal.Decimal `json:"funding_amount"`
	AgeCategory      AgeCategory     `json:"age_category"`
	Grade            *string         `json:"grade"`
	Message          *string         `json:"message"`
	RegistrationYear int             `json:"registration_year,omitempty"`
	AgeDetails       *AgeDetails     `json:"age_details"`
}

// FundingEvaluator classifies students against the funding age rules.
type FundingEvaluator struct {
	rates FundingRates
}

// NewFundingEvaluator builds an evaluator; zero rates fall back to the defaults.
func NewFundingEvaluator(rates FundingRates) *FundingEvaluator {
	def := DefaultFundingRates()
	if rates.Kindergarten.IsZero() {
		rates.Kindergarten = def.Kindergarten
	}
	if rates.Grades1To12.IsZero() {
		rates.Grades1To12 = def.Grades1To12
	}
	return &FundingEvaluator{rates: rates}
}

// Rates exposes the configured funding rates.
func (e *FundingEvaluator) Rates() FundingRates {
	return e.rates
}

// Determine evaluates a birthday for the given school year ("YY/YY"). When the school
// year is empty or malformed the registration year is inferred from now.
func (e *FundingEvaluator) Determine(birthday, schoolYear string, now time.Time) FundingResult {
	birthday = strings.TrimSpace(birthday)
	if birthday == "" {
		return FundingResult{
			FundingEligible: true,
			FundingAmount:   decimal.Zero,
			AgeCategory:     AgeCategoryUnknown,
			Message:         strPtr("Date of birth not provided; funding eligibility will be confirmed once it is entered."),
		}
	}

	year := RegistrationYear(schoolYear, now)
	birth, ok := ParseBirthday(birthday)
	if !ok {
		return FundingResult{
			FundingAmount:    decimal.Zero,
			AgeCategory:      AgeCategoryUnknown,
			RegistrationYear: year,
			Message:          strPtr(fmt.Sprintf("Date of birth %q could not be read; funding eligibility for the %s school year could not be determined.", birthday, schoolYearLabel(year))),
		}
	}

	septFirst := time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC)
	decLast := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	in := ageInputs{
		sept1:       CalculateAge(birth, septFirst),
		dec31:       CalculateAge(birth, decLast),
		sept1Months: ExactMonths(birth, septFirst),
	}
	result := e.classify(in, year)
	result.RegistrationYear = year
	result.AgeDetails = &AgeDetails{
		AgeOnSept1: breakdown(in.sept1),
		AgeOnDec31: breakdown(in.dec31),
		ReferenceDates: ReferenceDates{
			SeptemberFirst:  septFirst.Format(referenceDateLayout),
			DecemberThirty1: decLast.Format(referenceDateLayout),
		},
	}
	return result
}

type ageInputs struct {
	sept1       float64
	dec31       float64
	sept1Months int
}

// classify applies the rules in order; the first match wins.
func (e *FundingEvaluator) classify(in ageInputs, year int) FundingResult {
	label := schoolYearLabel(year)

	if in.dec31 >= kindergartenAge && in.sept1 < gradeOneAge {
		if in.sept1 < kindergartenAge && in.sept1Months < minKindergartenMons {
			return FundingResult{
				FundingAmount: decimal.Zero,
				AgeCategory:   AgeCategoryTooYoung,
				Message: strPtr(fmt.Sprintf(
					"Not eligible for funding in the %s school year. Kindergarten students must be at least 4 years 8 months old on September 1, %d.",
					label, year)),
			}
		}
		return FundingResult{
			FundingEligible: true,
			FundingAmount:   e.rates.Kindergarten,
			AgeCategory:     AgeCategoryKindergarten,
			Grade:           strPtr("K"),
			Message: strPtr(fmt.Sprintf(
				"Eligible for kindergarten funding of $%s for the %s school year.",
				e.rates.Kindergarten.StringFixed(2), label)),
		}
	}

	if in.dec31 < kindergartenAge {
		return FundingResult{
			FundingAmount: decimal.Zero,
			AgeCategory:   AgeCategoryTooYoung,
			Message: strPtr(fmt.Sprintf(
				"Not eligible for funding in the %s school year. Students must turn 5 by December 31, %d to receive kindergarten funding.",
				label, year)),
		}
	}

	if in.sept1 >= maxFundedAge {
		return FundingResult{
			FundingAmount: decimal.Zero,
			AgeCategory:   AgeCategoryTooOld,
			Grade:         strPtr(strconv.Itoa(maxGrade)),
			Message: strPtr(fmt.Sprintf(
				"Not eligible for funding in the %s school year. Students must be under 20 years old on September 1, %d.",
				label, year)),
		}
	}

	if in.sept1 >= gradeOneAge && in.sept1 < maxFundedAge {
		return FundingResult{
			FundingEligible: true,
			FundingAmount:   e.rates.Grades1To12,
			AgeCategory:     AgeCategoryGrades1To12,
			Grade:           strPtr(strconv.Itoa(EstimateGrade(in.sept1))),
		}
	}

	return FundingResult{
		FundingAmount: decimal.Zero,
		AgeCategory:   AgeCategoryUnknown,
		Message:       strPtr(fmt.Sprintf("Unable to determine funding eligibility for the %s school year.", label)),
	}
}

// EstimateGrade maps an age on September 1 to a grade between 1 and 12.
func EstimateGrade(age float64) int {
	grade := int(math.Floor(age)) - kindergartenAge
	if grade < 1 {
		return 1
	}
	if grade > maxGrade {
		return maxGrade
	}
	return grade
}

// RegistrationYear resolves the September intake year from "YY/YY" or, failing that,
// from now: September to December registers for next year, January to August for this year.
func RegistrationYear(schoolYear string, now time.Time) int {
	if m := schoolYearPattern.FindStringSubmatch(strings.TrimSpace(schoolYear)); m != nil {
		first, _ := strconv.Atoi(m[1])
		if len(m[1]) == 2 {
			first += 2000
		}
		return first
	}
	if now.Month() >= time.September {
		return now.Year() + 1
	}
	return now.Year()
}

// ParseBirthday reads a date of birth and returns it as a UTC calendar day.
func ParseBirthday(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// CalculateAge returns the age in years on ref, as whole years plus the fraction of the
// current year of life already elapsed.
func CalculateAge(birth, ref time.Time) float64 {
	years := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		years--
	}
	last := birth.AddDate(years, 0, 0)
	next := birth.AddDate(years+1, 0, 0)
	span := next.Sub(last).Hours()
	if span <= 0 {
		return float64(years)
	}
	return float64(years) + ref.Sub(last).Hours()/span
}

// ExactMonths counts the whole calendar months between birth and ref.
func ExactMonths(birth, ref time.Time) int {
	months := (ref.Year()-birth.Year())*12 + int(ref.Month()) - int(birth.Month())
	if ref.Day() < birth.Day() {
		months--
	}
	return months
}

// breakdown keeps the 30-day month approximation used by the age display.
func breakdown(age float64) AgeBreakdown {
	years := math.Floor(age)
	frac := age - years
	monthsExact := frac * 12
	return AgeBreakdown{
		Value:  age,
		Years:  int(years),
		Months: int(math.Floor(monthsExact)),
		Days:   int(math.Floor(math.Mod(monthsExact, 1) * approxDaysPerMonth)),
	}
}

// SchoolYearCode renders the short "YY/YY" form of the school year starting in September of year.
func SchoolYearCode(year int) string {
	return fmt.Sprintf("%02d/%02d", year%100, (year+1)%100)
}

func schoolYearLabel(year int) string {
	return fmt.Sprintf("%d/%d", year, year+1)
}

func strPtr(value string) *string {
	return &value
}
