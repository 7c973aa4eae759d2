package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nlsantiago/sis-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryRosterDefaultsToPresent(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "student_name", "lrn", "status", "remarks"}).
		AddRow("stu-1", "Juan Dela Cruz", "123456789012", "Present", nil).
		AddRow("stu-2", "Maria Santos", "210987654321", "Absent", "sick")
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(a.status, 'Present') AS status")).
		WithArgs("sec-1", date, "sy-1").
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), "sec-1", date, "sy-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, models.AttendancePresent, roster[0].Status)
	require.Equal(t, models.AttendanceAbsent, roster[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsert(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	marks := []models.AttendanceMark{
		{StudentID: "stu-1", Status: models.AttendancePresent},
		{StudentID: "stu-2", Status: models.AttendanceLate},
	}

	mock.ExpectBegin()
	for _, mark := range marks {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
			WithArgs(sqlmock.AnyArg(), mark.StudentID, mark.Status, date, nil, "sy-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.BulkUpsert(context.Background(), date, "sy-1", marks))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	marks := []models.AttendanceMark{
		{StudentID: "stu-1", Status: models.AttendancePresent},
		{StudentID: "stu-2", Status: models.AttendanceAbsent},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
		WithArgs(sqlmock.AnyArg(), "stu-1", models.AttendancePresent, date, nil, "sy-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
		WithArgs(sqlmock.AnyArg(), "stu-2", models.AttendanceAbsent, date, nil, "sy-1", sqlmock.AnyArg()).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), date, "sy-1", marks)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryTallyByStudent(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"total", "present", "absent", "late"}).AddRow(20, 17, 2, 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance WHERE student_id = $1 AND school_year_id = $2")).
		WithArgs("stu-1", "sy-1").
		WillReturnRows(rows)

	tally, err := repo.TallyByStudent(context.Background(), "stu-1", "sy-1")
	require.NoError(t, err)
	require.Equal(t, 20, tally.Total)
	require.Equal(t, 17, tally.Present)
	require.NoError(t, mock.ExpectationsWereMet())
}
