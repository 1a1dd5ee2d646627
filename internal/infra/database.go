package infra

import (
	"fmt"

	"stitchbill/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx, runs AutoMigrate for all
// models, then applies the idempotent SQL patches GORM cannot express
// (sequences, partial unique indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table and applies schema patches.
// Integration tests call it directly against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.RateElement{},
		&model.BaseRate{},
		&model.Machine{},
		&model.Contract{},
		&model.Design{},
		&model.DesignRateElement{},
		&model.ProductionEntry{},
		&model.StitchOverride{},
		&model.BillingRecord{},
		&model.ReconciliationRecord{},
		&model.GatePass{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs DDL that AutoMigrate cannot handle. Every statement
// is guarded with IF NOT EXISTS so re-running on a patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`CREATE SEQUENCE IF NOT EXISTS contract_number_seq START 1`,
		// at most one open base-rate interval
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_base_rates_current
		    ON base_rates ((effective_to IS NULL))
		    WHERE effective_to IS NULL`,
		// one regular bill per production entry; compensating records are unrestricted
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_billing_regular_entry
		    ON billing_records (production_entry_id)
		    WHERE kind = 'regular'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_design_number_per_contract
		    ON designs (contract_id, design_number)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_design_element
		    ON design_rate_elements (design_id, rate_element_id)`,
		`CREATE INDEX IF NOT EXISTS idx_gate_passes_outward
		    ON gate_passes (contract_id, movement_date)
		    WHERE direction = 'outward'`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
