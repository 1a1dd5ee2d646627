package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingRecord status and kind values.
const (
	BillingPending  = "pending"
	BillingApproved = "approved"

	BillingRegular      = "regular"
	BillingCompensating = "compensating"
)

// BillingRecord prices one production entry with the rates in force when it
// was billed. Rates are copied into the row, never looked up at read time.
// Approved records are immutable; corrections are new compensating records.
type BillingRecord struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContractID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"contract_id"`
	MachineID         uuid.UUID       `gorm:"type:uuid;not null" json:"machine_id"`
	ProductionEntryID uuid.UUID       `gorm:"type:uuid;not null;index" json:"production_entry_id"`
	BillingDate       time.Time       `gorm:"type:date;not null;index" json:"billing_date"`
	Shift             string          `gorm:"type:varchar(10);not null" json:"shift"`
	Kind              string          `gorm:"type:varchar(20);not null;default:'regular'" json:"kind"`
	CompensatesID     *uuid.UUID      `gorm:"type:uuid" json:"compensates_id"`
	TotalStitches     int64           `gorm:"not null" json:"total_stitches"`
	BaseRate          decimal.Decimal `gorm:"type:decimal(14,6);not null" json:"base_rate"`
	ElementRates      decimal.Decimal `gorm:"type:decimal(14,6);not null" json:"element_rates"`
	EffectiveRate     decimal.Decimal `gorm:"type:decimal(14,6);not null" json:"effective_rate"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	GatePassID        *uuid.UUID      `gorm:"type:uuid" json:"gate_pass_id"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ApprovedBy        *string         `json:"approved_by"`
	ApprovedAt        *time.Time      `json:"approved_at"`
	CreatedBy         string          `gorm:"not null" json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ComputeAmount is the money rule for billing: stitches × (base + elements),
// rounded to 2 places half away from zero. Stored amounts must equal
// ComputeAmount of the stored snapshot fields.
func ComputeAmount(stitches int64, base, elements decimal.Decimal) decimal.Decimal {
	return RoundMoney(decimal.NewFromInt(stitches).Mul(base.Add(elements)))
}

// RoundMoney rounds to 2 decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
