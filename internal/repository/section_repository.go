package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// SectionRepository manages persistence for classroom sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a new section repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = "s.id, s.name, s.grade_level, s.adviser_id, s.room_number, s.capacity, s.school_year_id, s.created_at, s.updated_at"

// List returns sections for a school year with the adviser name and the
// derived enrollment count. The count is computed at read time so it
// never drifts from the roster.
func (r *SectionRepository) List(ctx context.Context, schoolYearID string) ([]models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        u.first_name || ' ' || u.last_name AS adviser_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.section_id = s.id AND e.school_year_id = s.school_year_id) AS current_enrollment
        FROM sections s
        LEFT JOIN users u ON u.id = s.adviser_id
        WHERE ($1 = '' OR s.school_year_id = $1)
        ORDER BY s.grade_level, s.name`, sectionColumns)
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, schoolYearID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID loads a section with its adviser name and derived count.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        u.first_name || ' ' || u.last_name AS adviser_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.section_id = s.id AND e.school_year_id = s.school_year_id) AS current_enrollment
        FROM sections s
        LEFT JOIN users u ON u.id = s.adviser_id
        WHERE s.id = $1`, sectionColumns)
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// Create inserts a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, name, grade_level, adviser_id, room_number, capacity, school_year_id, created_at, updated_at)
        VALUES (:id, :name, :grade_level, :adviser_id, :room_number, :capacity, :school_year_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies an existing section.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET name = :name, grade_level = :grade_level, adviser_id = :adviser_id,
        room_number = :room_number, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section permanently.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// ListSubjects returns the curriculum, optionally filtered by grade
// level, ordered by grade then name.
func (r *SectionRepository) ListSubjects(ctx context.Context, gradeLevel string) ([]models.Subject, error) {
	const query = `SELECT id, name, grade_level, created_at FROM subjects
        WHERE ($1 = '' OR grade_level = $1) ORDER BY grade_level, name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, gradeLevel); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}
