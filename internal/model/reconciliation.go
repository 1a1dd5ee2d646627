package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationRecord status values.
// pending → resolved | escalated. Escalated is terminal inside the service.
const (
	ReconciliationPending   = "pending"
	ReconciliationResolved  = "resolved"
	ReconciliationEscalated = "escalated"
)

// ReconciliationRecord compares approved production value against shipped
// value for one contract as of one date. (contract_id, reconciliation_date)
// is unique, so re-running a reconciliation updates the same row.
type ReconciliationRecord struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContractID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_reconciliation_contract_date" json:"contract_id"`
	ReconciliationDate   time.Time       `gorm:"type:date;not null;uniqueIndex:idx_reconciliation_contract_date" json:"reconciliation_date"`
	TotalProductionValue decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_production_value"`
	TotalShippedValue    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_shipped_value"`
	DiscrepancyAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discrepancy_amount"`
	Tolerance            decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"tolerance"`
	Status               string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Notes                *string         `json:"notes"`
	ResolvedBy           *string         `json:"resolved_by"`
	ResolvedAt           *time.Time      `json:"resolved_at"`
	EscalatedBy          *string         `json:"escalated_by"`
	EscalatedAt          *time.Time      `json:"escalated_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
