package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nlsantiago/sis-api/internal/models"
)

// AuditRepository writes to the append-only audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit log entry. Entries are never updated or deleted.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, module, entity_id, before_values, after_values, ip_address, created_at)
        VALUES (:id, :user_id, :action, :module, :entity_id, :before_values, :after_values, :ip_address, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByEntity returns entries recorded against an entity, most recent first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	const query = `SELECT id, user_id, action, module, entity_id, before_values, after_values, ip_address, created_at
        FROM audit_logs WHERE entity_id = $1 ORDER BY created_at DESC LIMIT $2`
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, entityID, limit); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
