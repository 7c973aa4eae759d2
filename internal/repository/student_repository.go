package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// StudentRepository provides database access for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "s.id, s.lrn, s.first_name, s.last_name, s.middle_name, s.date_of_birth, s.gender, s.email, s.current_grade_level, s.current_section, s.created_at, s.updated_at"

// List returns students joined through their enrollment for a school year,
// with search/grade/status filters and pagination.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRow, int, error) {
	base := `FROM students s
JOIN enrollments e ON e.student_id = s.id
LEFT JOIN sections sec ON sec.id = e.section_id`
	var conditions []string
	var args []interface{}

	if filter.SchoolYearID != "" {
		conditions = append(conditions, fmt.Sprintf("e.school_year_id = $%d", len(args)+1))
		args = append(args, filter.SchoolYearID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.first_name ILIKE $%d OR s.last_name ILIKE $%d OR s.lrn ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("e.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, e.grade_level, sec.name AS section_name, e.status AS enrollment_status
        %s ORDER BY s.last_name ASC LIMIT %d OFFSET %d`, studentColumns, base+clause, size, offset)

	var students []models.StudentRow
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with the enrollment facts for one year.
func (r *StudentRepository) FindByID(ctx context.Context, id, schoolYearID string) (*models.StudentRow, error) {
	query := fmt.Sprintf(`SELECT %s, e.grade_level, sec.name AS section_name, e.status AS enrollment_status
        FROM students s
        LEFT JOIN enrollments e ON e.student_id = s.id AND e.school_year_id = $2
        LEFT JOIN sections sec ON sec.id = e.section_id
        WHERE s.id = $1`, studentColumns)
	var student models.StudentRow
	if err := r.db.GetContext(ctx, &student, query, id, schoolYearID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByLRN returns the student carrying the given LRN.
func (r *StudentRepository) FindByLRN(ctx context.Context, lrn string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.lrn = $1 LIMIT 1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, lrn); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, lrn, first_name, last_name, middle_name, date_of_birth, gender, email, current_grade_level, current_section, created_at, updated_at)
        VALUES (:id, :lrn, :first_name, :last_name, :middle_name, :date_of_birth, :gender, :email, :current_grade_level, :current_section, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies mutable fields of a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET lrn = :lrn, first_name = :first_name, last_name = :last_name, middle_name = :middle_name,
        date_of_birth = :date_of_birth, gender = :gender, email = :email, current_grade_level = :current_grade_level,
        current_section = :current_section, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student permanently.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
