package models

import "time"

// Audit action and module constants for compliance-sensitive mutations.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionApproveEnrollment = "APPROVE_ENROLLMENT"
	AuditActionSetActiveYear     = "SET_ACTIVE_SCHOOL_YEAR"
	AuditActionUserCreate        = "USER_CREATE"
	AuditActionUserUpdate        = "USER_UPDATE"
	AuditActionUserDelete        = "USER_DELETE"

	AuditModuleAuth       = "AUTH"
	AuditModuleEnrollment = "ENROLLMENT"
	AuditModuleSchoolYear = "SCHOOL_YEAR"
	AuditModuleUsers      = "USERS"
)

// AuditLog is an append-only compliance record. The application never
// updates or deletes rows in this table.
type AuditLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	Action       string    `db:"action" json:"action"`
	Module       string    `db:"module" json:"module"`
	EntityID     *string   `db:"entity_id" json:"entity_id,omitempty"`
	BeforeValues []byte    `db:"before_values" json:"before_values,omitempty"`
	AfterValues  []byte    `db:"after_values" json:"after_values,omitempty"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
