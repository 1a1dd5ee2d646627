package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shift values.
const (
	ShiftDay   = "day"
	ShiftNight = "night"
)

// ProductionEntry records stitches produced on one machine for one design in
// one shift. ActualStitches is never updated; corrections are StitchOverrides.
type ProductionEntry struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MachineID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"machine_id"`
	DesignID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"design_id"`
	ContractID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_entries_billing_scope" json:"contract_id"`
	ProductionDate   time.Time      `gorm:"type:date;not null;index:idx_entries_billing_scope" json:"production_date"`
	Shift            string         `gorm:"type:varchar(10);not null;index:idx_entries_billing_scope" json:"shift"`
	ActualStitches   int64          `gorm:"not null" json:"actual_stitches"`
	GenuineStitches  *int64         `json:"genuine_stitches"`
	RepeatsCompleted int            `gorm:"not null;default:0" json:"repeats_completed"`
	OperatorName     string         `json:"operator_name"`
	IsBilled         bool           `gorm:"not null;default:false" json:"is_billed"`
	BillingRecordID  *uuid.UUID     `gorm:"type:uuid" json:"billing_record_id"`
	CreatedBy        string         `gorm:"not null" json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Overrides []StitchOverride `gorm:"foreignKey:ProductionEntryID" json:"overrides,omitempty"`
}

// StitchOverride is an append-only correction of an entry's stitch count.
// Revision increases by one per entry; the highest revision wins.
type StitchOverride struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductionEntryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_override_revision" json:"production_entry_id"`
	Revision          int       `gorm:"not null;uniqueIndex:idx_override_revision" json:"revision"`
	OriginalStitches  int64     `gorm:"not null" json:"original_stitches"`
	NewStitches       int64     `gorm:"not null" json:"new_stitches"`
	Reason            string    `gorm:"not null" json:"reason"`
	OverriddenBy      string    `gorm:"not null" json:"overridden_by"`
	// PostBilling marks overrides applied after the entry was billed; their
	// delta is only reflected through a compensating billing record.
	PostBilling bool      `gorm:"not null;default:false" json:"post_billing"`
	CreatedAt   time.Time `json:"created_at"`
}

// ResolveStitches folds the override log over the original count: the latest
// revision's NewStitches, or actual when there are no overrides.
func ResolveStitches(actual int64, overrides []StitchOverride) int64 {
	resolved := actual
	latest := 0
	for _, o := range overrides {
		if o.Revision > latest {
			latest = o.Revision
			resolved = o.NewStitches
		}
	}
	return resolved
}

// NextRevision returns the revision number for the next override.
func NextRevision(overrides []StitchOverride) int {
	n := 0
	for _, o := range overrides {
		if o.Revision > n {
			n = o.Revision
		}
	}
	return n + 1
}
