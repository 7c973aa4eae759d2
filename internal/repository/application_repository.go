package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// ApplicationRepository handles persistence of enrollment applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `a.id, a.application_number, a.student_first_name, a.student_middle_name, a.student_last_name,
        a.date_of_birth, a.gender, a.grade_level, a.lrn, a.parent_email, a.status, a.school_year_id, a.section_id, a.created_at`

// List returns applications matching the filter, newest first, with the
// assigned section name joined on.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := `FROM enrollment_applications a LEFT JOIN sections s ON s.id = a.section_id`
	var conditions []string
	var args []interface{}

	if filter.SchoolYearID != "" {
		conditions = append(conditions, fmt.Sprintf("a.school_year_id = $%d", len(args)+1))
		args = append(args, filter.SchoolYearID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("a.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(a.student_first_name ILIKE $%d OR a.student_last_name ILIKE $%d OR a.lrn ILIKE $%d OR a.application_number ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, s.name AS section_name %s ORDER BY a.created_at DESC LIMIT %d OFFSET %d`,
		applicationColumns, base+clause, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// FindByID returns an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollment_applications a WHERE a.id = $1", applicationColumns)
	var app models.EnrollmentApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// ExistsByNumber checks whether an application number is already taken.
func (r *ApplicationRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM enrollment_applications WHERE application_number = $1 LIMIT 1`, number)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check application number: %w", err)
	}
	return true, nil
}

// Create persists a new application submission.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.EnrollmentApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollment_applications
        (id, application_number, student_first_name, student_middle_name, student_last_name,
         date_of_birth, gender, grade_level, lrn, parent_email, status, school_year_id, section_id, created_at)
        VALUES (:id, :application_number, :student_first_name, :student_middle_name, :student_last_name,
         :date_of_birth, :gender, :grade_level, :lrn, :parent_email, :status, :school_year_id, :section_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// UpdateStatus updates the status of one application, optionally assigning
// a section. The section assignment is a pure metadata update; capacity is
// not checked here.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, sectionID *string) error {
	if sectionID != nil {
		if _, err := r.db.ExecContext(ctx, `UPDATE enrollment_applications SET status = $1, section_id = $2 WHERE id = $3`, status, *sectionID, id); err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE enrollment_applications SET status = $1 WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}

// BulkUpdateStatus sets the status for every listed application.
func (r *ApplicationRepository) BulkUpdateStatus(ctx context.Context, ids []string, status models.ApplicationStatus) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE enrollment_applications SET status = ? WHERE id IN (?)`, status, ids)
	if err != nil {
		return fmt.Errorf("build bulk status update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("bulk update application status: %w", err)
	}
	return nil
}

// CountsByYear aggregates applications per status for a school year.
func (r *ApplicationRepository) CountsByYear(ctx context.Context, schoolYearID string) (*models.ApplicationStatusCounts, error) {
	const query = `SELECT
        COUNT(CASE WHEN status = 'pre-registered' THEN 1 END) AS pre_registered,
        COUNT(CASE WHEN status = 'enrolled' THEN 1 END) AS enrolled,
        COUNT(CASE WHEN status = 'transferred' THEN 1 END) AS transferred,
        COUNT(*) AS total
        FROM enrollment_applications WHERE school_year_id = $1`
	var counts models.ApplicationStatusCounts
	if err := r.db.GetContext(ctx, &counts, query, schoolYearID); err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	return &counts, nil
}

// ApprovalResult reports what the approval transaction did.
type ApprovalResult struct {
	StudentID      string
	StudentCreated bool
}

// Approve runs the database half of an approval as one transaction: the
// application becomes enrolled, the student is resolved or created by LRN,
// the roster row is upserted on (student_id, school_year_id), and the
// audit entry is written. Either all of it applies or none of it does; the
// certificate and email happen afterwards, outside this unit.
func (r *ApplicationRepository) Approve(ctx context.Context, app *models.EnrollmentApplication, actorID, ip string) (*ApprovalResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE enrollment_applications SET status = $1 WHERE id = $2`,
		models.ApplicationStatusEnrolled, app.ID); err != nil {
		return nil, fmt.Errorf("mark application enrolled: %w", err)
	}

	result := &ApprovalResult{}
	var studentID string
	err = tx.GetContext(ctx, &studentID, `SELECT id FROM students WHERE lrn = $1 LIMIT 1`, app.LRN)
	if err == sql.ErrNoRows {
		studentID = uuid.NewString()
		now := time.Now().UTC()
		if _, err = tx.ExecContext(ctx, `INSERT INTO students
            (id, lrn, first_name, last_name, middle_name, date_of_birth, gender, current_grade_level, current_section, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
			studentID, app.LRN, app.StudentFirstName, app.StudentLastName, app.StudentMiddleName,
			app.DateOfBirth, app.Gender, app.GradeLevel, app.SectionID, now); err != nil {
			return nil, fmt.Errorf("create student from application: %w", err)
		}
		result.StudentCreated = true
	} else if err != nil {
		return nil, fmt.Errorf("resolve student by lrn: %w", err)
	}
	result.StudentID = studentID

	if err = upsertEnrollment(ctx, tx, &models.Enrollment{
		StudentID:    studentID,
		SchoolYearID: app.SchoolYearID,
		SectionID:    app.SectionID,
		GradeLevel:   app.GradeLevel,
		Status:       "Enrolled",
	}); err != nil {
		return nil, err
	}

	before, _ := json.Marshal(map[string]interface{}{"status": app.Status})
	after, _ := json.Marshal(map[string]interface{}{"status": models.ApplicationStatusEnrolled})
	if _, err = tx.ExecContext(ctx, `INSERT INTO audit_logs (id, user_id, action, module, entity_id, before_values, after_values, ip_address, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), actorID, models.AuditActionApproveEnrollment, models.AuditModuleEnrollment,
		app.ID, before, after, ip, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("write approval audit log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve tx: %w", err)
	}
	return result, nil
}
