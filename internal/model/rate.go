package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateElement is an optional per-stitch surcharge for a technique
// ("Borer", "Sequence", "Tilla"). Rows are never deleted, only deactivated,
// so design snapshots stay resolvable.
type RateElement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name          string          `gorm:"uniqueIndex;not null" json:"name"`
	RatePerStitch decimal.Decimal `gorm:"type:decimal(14,6);not null" json:"rate_per_stitch"`
	Active        bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BaseRate is one interval of the base per-stitch rate.
// At most one row has EffectiveTo == nil (enforced by idx_base_rates_current).
type BaseRate struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RatePerStitch decimal.Decimal `gorm:"type:decimal(14,6);not null" json:"rate_per_stitch"`
	EffectiveFrom time.Time       `gorm:"not null;index" json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"`
	CreatedBy     string          `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// IsCurrent reports whether the interval is still open.
func (b BaseRate) IsCurrent() bool { return b.EffectiveTo == nil }
