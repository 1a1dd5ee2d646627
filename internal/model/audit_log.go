package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions.
const (
	AuditInsert   = "insert"
	AuditUpdate   = "update"
	AuditDelete   = "delete"
	AuditOverride = "override"
)

// AuditLog is one immutable row per logical mutation. OldValues/NewValues
// hold JSON snapshots ("null" when absent).
type AuditLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EntityTable string    `gorm:"column:table_name;type:varchar(50);not null;index:idx_audit_record" json:"table_name"`
	RecordID    uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_record" json:"record_id"`
	Action      string    `gorm:"type:varchar(20);not null" json:"action"`
	OldValues   string    `gorm:"type:jsonb;not null;default:'null'" json:"old_values"`
	NewValues   string    `gorm:"type:jsonb;not null;default:'null'" json:"new_values"`
	Actor       string    `gorm:"not null;index" json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
