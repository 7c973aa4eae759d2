package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// AttendanceRepository handles persistence for the attendance ledger.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Roster returns the attendance sheet for a section and date: every
// student enrolled in the section for the year, with the recorded mark or
// Present when no row exists.
func (r *AttendanceRepository) Roster(ctx context.Context, sectionID string, date time.Time, schoolYearID string) ([]models.RosterEntry, error) {
	const query = `SELECT
        s.id AS student_id,
        s.first_name || ' ' || s.last_name AS student_name,
        s.lrn,
        COALESCE(a.status, 'Present') AS status,
        a.remarks
        FROM students s
        JOIN enrollments e ON s.id = e.student_id
        LEFT JOIN attendance a ON s.id = a.student_id AND a.date = $2 AND a.school_year_id = $3
        WHERE e.section_id = $1 AND e.school_year_id = $3
        ORDER BY s.last_name, s.first_name`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, sectionID, date, schoolYearID); err != nil {
		return nil, fmt.Errorf("load attendance roster: %w", err)
	}
	return roster, nil
}

// BulkUpsert writes a whole batch of marks for one date and year in a
// single transaction, inserting or replacing on the
// (student_id, date, school_year_id) key. A failure on any record rolls
// back the entire batch; partial attendance for a roster is never
// observable.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, date time.Time, schoolYearID string, marks []models.AttendanceMark) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO attendance (id, student_id, status, date, remarks, school_year_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (student_id, date, school_year_id)
        DO UPDATE SET status = EXCLUDED.status, remarks = EXCLUDED.remarks, created_at = EXCLUDED.created_at`

	now := time.Now().UTC()
	for _, mark := range marks {
		if _, err = tx.ExecContext(ctx, query, uuid.NewString(), mark.StudentID, mark.Status, date, mark.Remarks, schoolYearID, now); err != nil {
			return fmt.Errorf("upsert attendance for student %s: %w", mark.StudentID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	return nil
}

// ListByStudent returns a student's recent attendance rows for a year.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID, schoolYearID string, limit int) ([]models.Attendance, error) {
	if limit <= 0 {
		limit = 30
	}
	query := fmt.Sprintf(`SELECT id, student_id, date, status, remarks, school_year_id, created_at
        FROM attendance WHERE student_id = $1 AND school_year_id = $2 ORDER BY date DESC LIMIT %d`, limit)
	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, studentID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return rows, nil
}

// TallyByStudent summarises a student's attendance for a year.
func (r *AttendanceRepository) TallyByStudent(ctx context.Context, studentID, schoolYearID string) (*models.AttendanceTally, error) {
	const query = `SELECT
        COUNT(*) AS total,
        COUNT(CASE WHEN status = 'Present' THEN 1 END) AS present,
        COUNT(CASE WHEN status = 'Absent' THEN 1 END) AS absent,
        COUNT(CASE WHEN status = 'Late' THEN 1 END) AS late
        FROM attendance WHERE student_id = $1 AND school_year_id = $2`
	var tally models.AttendanceTally
	if err := r.db.GetContext(ctx, &tally, query, studentID, schoolYearID); err != nil {
		return nil, fmt.Errorf("tally student attendance: %w", err)
	}
	return &tally, nil
}
