package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
)

var studentRowColumns = []string{"id", "family_id", "first_name", "last_name", "asn", "birth_date", "active", "funding_eligible",
	"funding_amount", "age_category", "grade", "funding_school_year", "funding_checked_at"}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	birth := time.Date(2012, time.April, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, family_id, .* FROM students WHERE id = \$1`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("stu-1", "fam-1", "Ada", "Lovelace", nil, birth, true, true, "901.00", "grades_1_12", "8", "25/26", time.Now()))

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "2012-04-20", student.BirthDateString())
	require.True(t, student.FundingAmount.Valid)
	assert.True(t, student.FundingAmount.Decimal.Equal(decimal.RequireFromString("901")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`FROM students WHERE active = TRUE ORDER BY id ASC`).
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("stu-1", "fam-1", "Ada", "Lovelace", nil, nil, true, nil, nil, nil, nil, nil, nil).
			AddRow("stu-2", "fam-1", "Alan", "Turing", "987654321", time.Now(), true, nil, nil, nil, nil, nil, nil))

	students, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "", students[0].BirthDateString())
	assert.False(t, students[0].FundingAmount.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySaveFundingSnapshots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	checkedAt := time.Date(2025, time.March, 10, 2, 0, 0, 0, time.UTC)
	snapshots := []models.FundingSnapshot{
		{StudentID: "stu-1", Eligible: true, Amount: decimal.RequireFromString("901"), AgeCategory: "grades_1_12", Grade: strPtr("8"), SchoolYear: "25/26", CheckedAt: checkedAt},
		{StudentID: "stu-2", Eligible: false, Amount: decimal.Zero, AgeCategory: "too_young", SchoolYear: "25/26", CheckedAt: checkedAt},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET funding_eligible").
		WithArgs(true, sqlmock.AnyArg(), "grades_1_12", "8", "25/26", checkedAt, "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET funding_eligible").
		WithArgs(false, sqlmock.AnyArg(), "too_young", nil, "25/26", checkedAt, "stu-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveFundingSnapshots(context.Background(), snapshots))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySaveFundingSnapshotsRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET funding_eligible").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.SaveFundingSnapshots(context.Background(), []models.FundingSnapshot{{StudentID: "stu-1", Amount: decimal.Zero}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
