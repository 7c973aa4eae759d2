package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// SchoolYearRepository handles persistence for academic years.
type SchoolYearRepository struct {
	db *sqlx.DB
}

// NewSchoolYearRepository instantiates a school year repository.
func NewSchoolYearRepository(db *sqlx.DB) *SchoolYearRepository {
	return &SchoolYearRepository{db: db}
}

const schoolYearColumns = "id, year_name, start_date, end_date, enrollment_start, enrollment_end, is_active, created_at, updated_at"

// List returns all school years, newest first.
func (r *SchoolYearRepository) List(ctx context.Context) ([]models.SchoolYear, error) {
	query := fmt.Sprintf("SELECT %s FROM school_years ORDER BY start_date DESC", schoolYearColumns)
	var years []models.SchoolYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list school years: %w", err)
	}
	return years, nil
}

// FindByID loads a school year by identifier.
func (r *SchoolYearRepository) FindByID(ctx context.Context, id string) (*models.SchoolYear, error) {
	query := fmt.Sprintf("SELECT %s FROM school_years WHERE id = $1", schoolYearColumns)
	var year models.SchoolYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindActive returns the single school year flagged active, or
// sql.ErrNoRows when none is.
func (r *SchoolYearRepository) FindActive(ctx context.Context) (*models.SchoolYear, error) {
	query := fmt.Sprintf("SELECT %s FROM school_years WHERE is_active = TRUE LIMIT 1", schoolYearColumns)
	var year models.SchoolYear
	if err := r.db.GetContext(ctx, &year, query); err != nil {
		return nil, err
	}
	return &year, nil
}

// ExistsByName checks whether a year with the given name already exists.
func (r *SchoolYearRepository) ExistsByName(ctx context.Context, yearName, excludeID string) (bool, error) {
	query := "SELECT 1 FROM school_years WHERE year_name = $1"
	args := []interface{}{yearName}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school year name: %w", err)
	}
	return true, nil
}

// Create inserts a new school year record. New years are never created
// active; activation goes through SetActive.
func (r *SchoolYearRepository) Create(ctx context.Context, year *models.SchoolYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now
	year.IsActive = false

	const query = `INSERT INTO school_years (id, year_name, start_date, end_date, enrollment_start, enrollment_end, is_active, created_at, updated_at)
        VALUES (:id, :year_name, :start_date, :end_date, :enrollment_start, :enrollment_end, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create school year: %w", err)
	}
	return nil
}

// Update modifies the date fields of a school year. The active flag is
// only touched by SetActive.
func (r *SchoolYearRepository) Update(ctx context.Context, year *models.SchoolYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE school_years SET year_name = :year_name, start_date = :start_date, end_date = :end_date,
        enrollment_start = :enrollment_start, enrollment_end = :enrollment_end, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update school year: %w", err)
	}
	return nil
}

// SetActive marks the provided year as active and deactivates the rest in
// one transaction. Two active years or zero active years both break
// downstream resolution, so a partial apply must never be observable.
func (r *SchoolYearRepository) SetActive(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set active tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE school_years SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE`, now); err != nil {
		return fmt.Errorf("deactivate school years: %w", err)
	}

	var res sql.Result
	if res, err = tx.ExecContext(ctx, `UPDATE school_years SET is_active = TRUE, updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return fmt.Errorf("activate school year: %w", err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set active tx: %w", err)
	}
	return nil
}

// CountEnrollments returns the number of roster rows referencing the year.
func (r *SchoolYearRepository) CountEnrollments(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE school_year_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count year enrollments: %w", err)
	}
	return count, nil
}

// Delete removes a school year. The service layer rejects deleting the
// active year or one with roster rows before reaching here.
func (r *SchoolYearRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM school_years WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school year: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
