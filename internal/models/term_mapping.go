package models

import (
	"time"

	"github.com/rtdacademy/rtd-connect-api/internal/eligibility"
)

// TermMappingRow pairs a logical term with one accepted PASI term string.
type TermMappingRow struct {
	Term      string    `db:"term" json:"term"`
	PasiTerm  string    `db:"pasi_term" json:"pasi_term"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MappingFromRows groups rows into the lookup table used by the term rules.
func MappingFromRows(rows []TermMappingRow) eligibility.TermMapping {
	mapping := make(eligibility.TermMapping)
	for _, row := range rows {
		mapping[row.Term] = append(mapping[row.Term], row.PasiTerm)
	}
	return mapping
}
