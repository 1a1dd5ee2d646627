package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gate pass directions.
const (
	GatePassInward  = "inward"
	GatePassOutward = "outward"
)

// GatePass is a physical movement of goods through the factory gate. Rows are
// written by the inventory module; this service only reads outward movements.
type GatePass struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	GatePassNumber string          `gorm:"uniqueIndex;not null" json:"gate_pass_number"`
	ContractID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"contract_id"`
	Direction      string          `gorm:"type:varchar(10);not null" json:"direction"`
	Quantity       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"quantity"`
	MovementDate   time.Time       `gorm:"type:date;not null" json:"movement_date"`
	CreatedAt      time.Time       `json:"created_at"`
}
