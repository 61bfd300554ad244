package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
)

func TestTermMappingRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTermMappingRepository(db)

	mock.ExpectQuery("SELECT term, pasi_term, updated_by, updated_at FROM term_mappings").
		WillReturnRows(sqlmock.NewRows([]string{"term", "pasi_term", "updated_by", "updated_at"}).
			AddRow("Term 1", "Fall", "admin", time.Now()).
			AddRow("Term 1", "Semester 1", nil, time.Now()).
			AddRow("Term 2", "Spring", nil, time.Now()))

	rows, err := repo.List(context.Background())
	require.NoError(t, err)
	mapping := models.MappingFromRows(rows)
	assert.Equal(t, []string{"Fall", "Semester 1"}, mapping["Term 1"])
	assert.Equal(t, []string{"Spring"}, mapping["Term 2"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermMappingRepositoryReplace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTermMappingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM term_mappings").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO term_mappings").
		WithArgs("Term 1", "Fall", "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO term_mappings").
		WithArgs("Term 2", "Spring", "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), []models.TermMappingRow{
		{Term: "Term 1", PasiTerm: "Fall", UpdatedBy: strPtr("admin")},
		{Term: "Term 2", PasiTerm: "Spring", UpdatedBy: strPtr("admin")},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTermMappingRepositoryReplaceRollsBackOnInsertError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTermMappingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM term_mappings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO term_mappings").WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), []models.TermMappingRow{{Term: "Term 1", PasiTerm: "Fall"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
