package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nlsantiago/sis-api/internal/models"
)

func newApplicationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApplicationRepositoryExistsByNumber(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollment_applications WHERE application_number = $1 LIMIT 1")).
		WithArgs("ENR-2025-0042").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByNumber(context.Background(), "ENR-2025-0042")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollment_applications WHERE application_number = $1 LIMIT 1")).
		WithArgs("ENR-2025-0043").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByNumber(context.Background(), "ENR-2025-0043")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCountsByYear(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	rows := sqlmock.NewRows([]string{"pre_registered", "enrolled", "transferred", "total"}).
		AddRow(5, 12, 1, 18)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollment_applications WHERE school_year_id = $1")).
		WithArgs("sy-1").
		WillReturnRows(rows)

	counts, err := repo.CountsByYear(context.Background(), "sy-1")
	require.NoError(t, err)
	require.Equal(t, 5, counts.PreRegistered)
	require.Equal(t, 12, counts.Enrolled)
	require.Equal(t, 18, counts.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryApproveExistingStudent(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	app := &models.EnrollmentApplication{
		ID:               "app-1",
		StudentFirstName: "Juan",
		StudentLastName:  "Dela Cruz",
		DateOfBirth:      time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:           "Male",
		GradeLevel:       "Grade 7",
		LRN:              "123456789012",
		Status:           models.ApplicationStatusPreRegistered,
		SchoolYearID:     "sy-1",
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_applications SET status = $1 WHERE id = $2")).
		WithArgs(models.ApplicationStatusEnrolled, "app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE lrn = $1 LIMIT 1")).
		WithArgs("123456789012").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-1"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "sy-1", nil, "Grade 7", "Enrolled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(sqlmock.AnyArg(), "admin-1", models.AuditActionApproveEnrollment, models.AuditModuleEnrollment,
			"app-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "10.0.0.1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Approve(context.Background(), app, "admin-1", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "stu-1", result.StudentID)
	require.False(t, result.StudentCreated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryApproveCreatesStudent(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	app := &models.EnrollmentApplication{
		ID:               "app-2",
		StudentFirstName: "Maria",
		StudentLastName:  "Santos",
		DateOfBirth:      time.Date(2011, 6, 2, 0, 0, 0, 0, time.UTC),
		Gender:           "Female",
		GradeLevel:       "Grade 8",
		LRN:              "210987654321",
		Status:           models.ApplicationStatusPreRegistered,
		SchoolYearID:     "sy-1",
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_applications SET status = $1 WHERE id = $2")).
		WithArgs(models.ApplicationStatusEnrolled, "app-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE lrn = $1 LIMIT 1")).
		WithArgs("210987654321").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Approve(context.Background(), app, "admin-1", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, result.StudentID)
	require.True(t, result.StudentCreated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryApproveRollsBackOnEnrollmentFailure(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	app := &models.EnrollmentApplication{
		ID:           "app-3",
		GradeLevel:   "Grade 7",
		LRN:          "111122223333",
		Status:       models.ApplicationStatusPreRegistered,
		SchoolYearID: "sy-1",
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_applications SET status = $1 WHERE id = $2")).
		WithArgs(models.ApplicationStatusEnrolled, "app-3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE lrn = $1 LIMIT 1")).
		WithArgs("111122223333").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-3"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), app, "admin-1", "10.0.0.1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
