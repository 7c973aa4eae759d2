package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// GradeRepository handles reads against the grade ledger.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByStudentAndSubject returns a student's grades for one subject and
// year, ordered by quarter.
func (r *GradeRepository) ListByStudentAndSubject(ctx context.Context, studentID, subjectID, schoolYearID string) ([]models.Grade, error) {
	const query = `SELECT id, student_id, subject_id, quarter, score, remarks, school_year_id, created_at
        FROM grades WHERE student_id = $1 AND subject_id = $2 AND school_year_id = $3 ORDER BY quarter`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, studentID, subjectID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// ListByStudent returns all of a student's grades for a year.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID, schoolYearID string) ([]models.Grade, error) {
	const query = `SELECT id, student_id, subject_id, quarter, score, remarks, school_year_id, created_at
        FROM grades WHERE student_id = $1 AND school_year_id = $2 ORDER BY created_at DESC`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, studentID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// ListWithSubjectByStudent returns a student's grades joined with subject
// names for the dashboard view.
func (r *GradeRepository) ListWithSubjectByStudent(ctx context.Context, studentID, schoolYearID string) ([]models.GradeWithSubject, error) {
	const query = `SELECT g.id, g.student_id, g.subject_id, g.quarter, g.score, g.remarks, g.school_year_id, g.created_at, s.name AS subject_name
        FROM grades g
        JOIN subjects s ON s.id = g.subject_id
        WHERE g.student_id = $1 AND g.school_year_id = $2
        ORDER BY s.name, g.quarter`
	var grades []models.GradeWithSubject
	if err := r.db.SelectContext(ctx, &grades, query, studentID, schoolYearID); err != nil {
		return nil, fmt.Errorf("list grades with subjects: %w", err)
	}
	return grades, nil
}
