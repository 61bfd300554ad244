package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
)

const studentColumns = `id, family_id, first_name, last_name, asn, birth_date, active, funding_eligible, funding_amount,
        age_category, grade, funding_school_year, funding_checked_at`

// StudentRepository manages persistence for student records and their funding snapshot.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListActive returns all active students ordered by ID.
func (r *StudentRepository) ListActive(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE active = TRUE ORDER BY id ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// SaveFundingSnapshots writes the derived funding fields for each student in one transaction.
func (r *StudentRepository) SaveFundingSnapshots(ctx context.Context, snapshots []models.FundingSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin funding snapshot tx: %w", err)
	}
	const query = `UPDATE students SET funding_eligible = :funding_eligible, funding_amount = :funding_amount,
        age_category = :age_category, grade = :grade, funding_school_year = :funding_school_year,
        funding_checked_at = :funding_checked_at WHERE id = :student_id`
	for i := range snapshots {
		if _, err := tx.NamedExecContext(ctx, query, snapshots[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save funding snapshot %s: %w", snapshots[i].StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit funding snapshot tx: %w", err)
	}
	return nil
}
