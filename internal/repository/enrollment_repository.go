package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
)

const enrollmentColumns = `ce.id, ce.student_id, s.first_name || ' ' || s.last_name AS student_name, COALESCE(s.asn, '') AS asn,
        ce.course_code, COALESCE(co.name, '') AS course_name, ce.school_year, ce.status, ce.exit_date, ce.pasi_term,
        ce.your_way_term, ce.status_value, ce.term_override, ce.term_checked, ce.checked_by, ce.checked_at, ce.updated_at`

const enrollmentFrom = `FROM course_enrollments ce JOIN students s ON s.id = ce.student_id LEFT JOIN courses co ON co.code = ce.course_code`

// EnrollmentRepository reads course enrollments and records term reviews.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns one page of enrollments matching the filter and the total match count.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.CourseEnrollmentFilter) ([]models.CourseEnrollment, int, error) {
	where, args := enrollmentConditions(filter)
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s\n        %s WHERE %s ORDER BY s.last_name ASC, s.first_name ASC, ce.course_code ASC LIMIT %d OFFSET %d",
		enrollmentColumns, enrollmentFrom, where, size, offset)
	var enrollments []models.CourseEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list course enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", enrollmentFrom, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListAll returns every enrollment matching the filter, ignoring pagination.
func (r *EnrollmentRepository) ListAll(ctx context.Context, filter models.CourseEnrollmentFilter) ([]models.CourseEnrollment, error) {
	where, args := enrollmentConditions(filter)
	query := fmt.Sprintf("SELECT %s\n        %s WHERE %s ORDER BY s.last_name ASC, s.first_name ASC, ce.course_code ASC",
		enrollmentColumns, enrollmentFrom, where)
	var enrollments []models.CourseEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list all course enrollments: %w", err)
	}
	return enrollments, nil
}

// FindByID fetches a single enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.CourseEnrollment, error) {
	query := fmt.Sprintf("SELECT %s\n        %s WHERE ce.id = $1", enrollmentColumns, enrollmentFrom)
	var enrollment models.CourseEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateReview stores a staff term review. sql.ErrNoRows is returned when the enrollment does not exist.
func (r *EnrollmentRepository) UpdateReview(ctx context.Context, review models.TermReview) error {
	const query = `UPDATE course_enrollments SET term_checked = $2, term_override = $3, checked_by = $4, checked_at = $5, updated_at = $5 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, review.EnrollmentID, review.Checked, review.Override, review.ReviewedBy, review.ReviewedAt)
	if err != nil {
		return fmt.Errorf("update term review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("term review rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func enrollmentConditions(filter models.CourseEnrollmentFilter) (string, []interface{}) {
	conditions := []string{"s.active = TRUE"}
	args := []interface{}{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.SchoolYear != "" {
		add("ce.school_year = $%d", filter.SchoolYear)
	}
	if filter.CourseCode != "" {
		add("ce.course_code = $%d", filter.CourseCode)
	}
	if filter.Status != "" {
		add("ce.status = $%d", filter.Status)
	}
	if filter.PasiTerm != "" {
		add("ce.pasi_term = $%d", filter.PasiTerm)
	}
	if filter.UncheckedOnly {
		conditions = append(conditions, "ce.term_checked = FALSE")
	}
	return strings.Join(conditions, " AND "), args
}
