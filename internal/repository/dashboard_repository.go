package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new instance of DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountEnrolledStudents counts students with an active enrollment in the
// school year. An empty adviserID counts school-wide; otherwise only
// students in sections advised by that user are counted.
func (r *DashboardRepository) CountEnrolledStudents(ctx context.Context, schoolYearID, adviserID string) (int, error) {
	const query = `SELECT COUNT(*)
        FROM enrollments e
        LEFT JOIN sections sec ON e.section_id = sec.id
        WHERE e.school_year_id = $1 AND e.status = 'Enrolled'
          AND ($2 = '' OR sec.adviser_id = $2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolYearID, adviserID); err != nil {
		return 0, fmt.Errorf("count enrolled students: %w", err)
	}
	return count, nil
}

// CountSections counts the school year's sections, optionally restricted
// to one adviser.
func (r *DashboardRepository) CountSections(ctx context.Context, schoolYearID, adviserID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sections
        WHERE school_year_id = $1 AND ($2 = '' OR adviser_id = $2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolYearID, adviserID); err != nil {
		return 0, fmt.Errorf("count sections: %w", err)
	}
	return count, nil
}

// AverageAttendance returns the share of Present and Late marks over the last
// 30 days as a whole-number percentage, scoped to the adviser's sections
// when adviserID is set. Returns 0 when no marks exist.
func (r *DashboardRepository) AverageAttendance(ctx context.Context, schoolYearID, adviserID string) (int, error) {
	const query = `SELECT COALESCE(ROUND(100.0 * COUNT(*) FILTER (WHERE a.status IN ('Present', 'Late')) / NULLIF(COUNT(*), 0)), 0)
        FROM attendance a
        JOIN enrollments e ON e.student_id = a.student_id AND e.school_year_id = a.school_year_id
        LEFT JOIN sections sec ON e.section_id = sec.id
        WHERE a.school_year_id = $1 AND a.date >= CURRENT_DATE - INTERVAL '30 days'
          AND ($2 = '' OR sec.adviser_id = $2)`
	var pct int
	if err := r.db.GetContext(ctx, &pct, query, schoolYearID, adviserID); err != nil {
		return 0, fmt.Errorf("average attendance: %w", err)
	}
	return pct, nil
}

// FindStudentIDByEmail resolves the student record linked to a user account.
func (r *DashboardRepository) FindStudentIDByEmail(ctx context.Context, email string) (string, error) {
	const query = `SELECT id FROM students WHERE email = $1 LIMIT 1`
	var id string
	if err := r.db.GetContext(ctx, &id, query, email); err != nil {
		return "", err
	}
	return id, nil
}

// TallyByStudent totals a student's attendance marks for the school year.
func (r *DashboardRepository) TallyByStudent(ctx context.Context, studentID, schoolYearID string) (models.AttendanceTally, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'Present') AS present,
        COUNT(*) FILTER (WHERE status = 'Absent') AS absent,
        COUNT(*) FILTER (WHERE status = 'Late') AS late
        FROM attendance WHERE student_id = $1 AND school_year_id = $2`
	var tally models.AttendanceTally
	if err := r.db.GetContext(ctx, &tally, query, studentID, schoolYearID); err != nil {
		return models.AttendanceTally{}, fmt.Errorf("tally attendance: %w", err)
	}
	return tally, nil
}

// ListEvents returns upcoming calendar events, soonest first.
func (r *DashboardRepository) ListEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	const query = `SELECT id, title, description, event_date, created_at
        FROM events WHERE event_date >= CURRENT_DATE ORDER BY event_date ASC LIMIT $1`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListNotices returns the most recent notice-board entries.
func (r *DashboardRepository) ListNotices(ctx context.Context, limit int) ([]models.Notice, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	const query = `SELECT id, title, body, created_at FROM notices ORDER BY created_at DESC LIMIT $1`
	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, query, limit); err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}
