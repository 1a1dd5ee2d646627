package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Contract status values.
const (
	ContractDraft     = "draft"
	ContractActive    = "active"
	ContractCompleted = "completed"
	ContractCancelled = "cancelled"
)

// Contract is a party's purchase order for embroidery work.
// ContractNumber is drawn from contract_number_seq and never changes.
type Contract struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContractNumber string     `gorm:"uniqueIndex;not null" json:"contract_number"`
	PartyName      string     `gorm:"not null;index" json:"party_name"`
	PONumber       string     `gorm:"column:po_number" json:"po_number"`
	StartDate      time.Time  `gorm:"type:date;not null" json:"start_date"`
	EndDate        *time.Time `gorm:"type:date" json:"end_date"`
	// ValuationRate is the default per-unit value used to price gate-pass outward movements.
	ValuationRate *decimal.Decimal `gorm:"type:decimal(14,4)" json:"valuation_rate"`
	Status        string           `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	CreatedBy     string           `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`

	Designs []Design `gorm:"foreignKey:ContractID" json:"designs,omitempty"`
}

// CanTransition reports whether status may move to next.
// draft→active, active→completed, draft|active→cancelled.
func (c Contract) CanTransition(next string) bool {
	switch next {
	case ContractActive:
		return c.Status == ContractDraft
	case ContractCompleted:
		return c.Status == ContractActive
	case ContractCancelled:
		return c.Status == ContractDraft || c.Status == ContractActive
	}
	return false
}

// Design is a contract item: one embroidery design with its planned volume.
type Design struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContractID      uuid.UUID `gorm:"type:uuid;not null;index" json:"contract_id"`
	DesignNumber    string    `gorm:"not null" json:"design_number"`
	Description     string    `json:"description"`
	PlannedQuantity int       `gorm:"not null;default:0" json:"planned_quantity"`
	PlannedStitches int64     `gorm:"not null;default:0" json:"planned_stitches"`
	Active          bool      `gorm:"not null;default:true" json:"active"`
	CreatedBy       string    `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`

	RateElements []DesignRateElement `gorm:"foreignKey:DesignID" json:"rate_elements"`
}

// ElementRates sums the snapshot rates of the selected elements.
func (d Design) ElementRates() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range d.RateElements {
		sum = sum.Add(e.RatePerStitch)
	}
	return sum
}

// DesignRateElement freezes an element's rate at design creation. Billing
// reads these rows, never the live RateElement.
type DesignRateElement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DesignID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"design_id"`
	RateElementID uuid.UUID       `gorm:"type:uuid;not null" json:"rate_element_id"`
	ElementName   string          `gorm:"not null" json:"element_name"`
	RatePerStitch decimal.Decimal `gorm:"type:decimal(14,6);not null" json:"rate_per_stitch"`
	CreatedAt     time.Time       `json:"created_at"`
}
