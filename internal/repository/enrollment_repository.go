package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// EnrollmentRepository handles persistence of the per-(student, year)
// roster facts.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByStudentAndYear returns the roster row for a (student, year) pair.
func (r *EnrollmentRepository) FindByStudentAndYear(ctx context.Context, studentID, schoolYearID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, school_year_id, section_id, grade_level, status, enrollment_date
        FROM enrollments WHERE student_id = $1 AND school_year_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, schoolYearID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Upsert inserts or replaces the roster row keyed on
// (student_id, school_year_id). Repeated approvals for the same pair
// converge to a single row.
func (r *EnrollmentRepository) Upsert(ctx context.Context, enrollment *models.Enrollment) error {
	return upsertEnrollment(ctx, r.db, enrollment)
}

// upsertEnrollment writes the roster row. ext is either the pool or an
// open transaction; the approval pipeline runs this inside its tx.
func upsertEnrollment(ctx context.Context, ext sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, school_year_id, section_id, grade_level, status, enrollment_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (student_id, school_year_id) DO UPDATE
        SET section_id = EXCLUDED.section_id, grade_level = EXCLUDED.grade_level, status = EXCLUDED.status`
	if _, err := ext.ExecContext(ctx, query,
		enrollment.ID, enrollment.StudentID, enrollment.SchoolYearID, enrollment.SectionID,
		enrollment.GradeLevel, enrollment.Status, enrollment.EnrollmentDate); err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

// CountBySection returns the derived enrollment count for a section.
func (r *EnrollmentRepository) CountBySection(ctx context.Context, sectionID, schoolYearID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND school_year_id = $2`,
		sectionID, schoolYearID); err != nil {
		return 0, fmt.Errorf("count section enrollments: %w", err)
	}
	return count, nil
}

// HistoryByStudent returns a student's roster rows across all years,
// newest first.
func (r *EnrollmentRepository) HistoryByStudent(ctx context.Context, studentID string) ([]models.EnrollmentHistoryEntry, error) {
	const query = `SELECT e.id, e.student_id, e.school_year_id, e.section_id, e.grade_level, e.status, e.enrollment_date, sy.year_name
        FROM enrollments e
        JOIN school_years sy ON sy.id = e.school_year_id
        WHERE e.student_id = $1
        ORDER BY sy.start_date DESC`
	var history []models.EnrollmentHistoryEntry
	if err := r.db.SelectContext(ctx, &history, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollment history: %w", err)
	}
	return history, nil
}
