package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
)

// CourseRepository reads the known course list.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListActive returns every active course ordered by code.
func (r *CourseRepository) ListActive(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT code, name, active FROM courses WHERE active = TRUE ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list active courses: %w", err)
	}
	return courses, nil
}
