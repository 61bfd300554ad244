package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
)

// TermMappingRepository persists the term to PASI term lookup table.
type TermMappingRepository struct {
	db *sqlx.DB
}

// NewTermMappingRepository constructs a TermMappingRepository.
func NewTermMappingRepository(db *sqlx.DB) *TermMappingRepository {
	return &TermMappingRepository{db: db}
}

// List returns every mapping row.
func (r *TermMappingRepository) List(ctx context.Context) ([]models.TermMappingRow, error) {
	const query = `SELECT term, pasi_term, updated_by, updated_at FROM term_mappings ORDER BY term ASC, pasi_term ASC`
	var rows []models.TermMappingRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list term mappings: %w", err)
	}
	return rows, nil
}

// Replace swaps the whole table for rows inside a single transaction.
func (r *TermMappingRepository) Replace(ctx context.Context, rows []models.TermMappingRow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin term mapping tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM term_mappings`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear term mappings: %w", err)
	}
	const insert = `INSERT INTO term_mappings (term, pasi_term, updated_by, updated_at) VALUES (:term, :pasi_term, :updated_by, :updated_at)`
	now := time.Now().UTC()
	for i := range rows {
		rows[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insert, rows[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert term mapping %s/%s: %w", rows[i].Term, rows[i].PasiTerm, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit term mapping tx: %w", err)
	}
	return nil
}
