package repository

import (
	"context"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, e *model.ProductionEntry) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ProductionEntry, error)
	// LockByID selects the entry FOR UPDATE and loads its override log.
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ProductionEntry, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, filter dto.EntryFilter) ([]model.ProductionEntry, int64, error)

	CreateOverride(ctx context.Context, tx *gorm.DB, o *model.StitchOverride) error

	// LockUnbilledForBilling selects unbilled entries of one contract, date
	// and shift FOR UPDATE NOWAIT. A concurrent holder surfaces as a
	// lock_not_available error (see IsLockNotAvailable).
	LockUnbilledForBilling(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, date time.Time, shift string) ([]model.ProductionEntry, error)
	MarkBilled(ctx context.Context, tx *gorm.DB, entryID, billingRecordID uuid.UUID) error
	CountUnbilled(ctx context.Context, tx *gorm.DB, contractID uuid.UUID) (int64, error)
	// ListPostBillingOverridden returns billed entries of a contract that carry
	// at least one post-billing override, with their override log.
	ListPostBillingOverridden(ctx context.Context, contractID uuid.UUID) ([]model.ProductionEntry, error)

	DB() *gorm.DB
}

type productionRepo struct{ db *gorm.DB }

func NewProductionRepository(db *gorm.DB) ProductionRepository { return &productionRepo{db: db} }

func (r *productionRepo) DB() *gorm.DB { return r.db }

func overridesByRevision(db *gorm.DB) *gorm.DB { return db.Order("revision ASC") }

func (r *productionRepo) Create(ctx context.Context, tx *gorm.DB, e *model.ProductionEntry) error {
	return conn(r.db, tx).WithContext(ctx).Omit("Overrides").Create(e).Error
}

func (r *productionRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ProductionEntry, error) {
	var e model.ProductionEntry
	err := conn(r.db, tx).WithContext(ctx).Preload("Overrides", overridesByRevision).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *productionRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ProductionEntry, error) {
	var e model.ProductionEntry
	db := conn(r.db, tx).WithContext(ctx)
	if err := db.Clauses(forUpdate).First(&e, "id = ?", id).Error; err != nil {
		return &e, err
	}
	err := db.Where("production_entry_id = ?", id).Order("revision ASC").Find(&e.Overrides).Error
	return &e, err
}

func (r *productionRepo) SoftDelete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	res := conn(r.db, tx).WithContext(ctx).Where("id = ? AND is_billed = false", id).Delete(&model.ProductionEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *productionRepo) List(ctx context.Context, filter dto.EntryFilter) ([]model.ProductionEntry, int64, error) {
	var entries []model.ProductionEntry
	var total int64

	q := r.db.WithContext(ctx).Model(&model.ProductionEntry{})
	if filter.ContractID != "" {
		q = q.Where("contract_id = ?", filter.ContractID)
	}
	if filter.MachineID != "" {
		q = q.Where("machine_id = ?", filter.MachineID)
	}
	if filter.Shift != "" {
		q = q.Where("shift = ?", filter.Shift)
	}
	switch filter.Billed {
	case "true":
		q = q.Where("is_billed = true")
	case "false":
		q = q.Where("is_billed = false")
	}
	if filter.From != "" {
		q = q.Where("production_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("production_date <= ?", filter.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(q, filter.Page, filter.Limit).
		Preload("Overrides", overridesByRevision).
		Order("production_date DESC, created_at DESC").
		Find(&entries).Error
	return entries, total, err
}

func (r *productionRepo) CreateOverride(ctx context.Context, tx *gorm.DB, o *model.StitchOverride) error {
	return conn(r.db, tx).WithContext(ctx).Create(o).Error
}

func (r *productionRepo) LockUnbilledForBilling(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, date time.Time, shift string) ([]model.ProductionEntry, error) {
	var entries []model.ProductionEntry
	db := conn(r.db, tx).WithContext(ctx)
	err := db.Clauses(forUpdateNoWait).
		Where("contract_id = ? AND production_date = ? AND shift = ? AND is_billed = false", contractID, date, shift).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil || len(entries) == 0 {
		return entries, err
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	var overrides []model.StitchOverride
	if err := db.Where("production_entry_id IN ?", ids).Order("revision ASC").Find(&overrides).Error; err != nil {
		return nil, err
	}
	byEntry := make(map[uuid.UUID][]model.StitchOverride, len(entries))
	for _, o := range overrides {
		byEntry[o.ProductionEntryID] = append(byEntry[o.ProductionEntryID], o)
	}
	for i := range entries {
		entries[i].Overrides = byEntry[entries[i].ID]
	}
	return entries, nil
}

func (r *productionRepo) MarkBilled(ctx context.Context, tx *gorm.DB, entryID, billingRecordID uuid.UUID) error {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.ProductionEntry{}).
		Where("id = ? AND is_billed = false", entryID).
		Updates(map[string]interface{}{
			"is_billed":         true,
			"billing_record_id": billingRecordID,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *productionRepo) CountUnbilled(ctx context.Context, tx *gorm.DB, contractID uuid.UUID) (int64, error) {
	var n int64
	err := conn(r.db, tx).WithContext(ctx).Model(&model.ProductionEntry{}).
		Where("contract_id = ? AND is_billed = false", contractID).
		Count(&n).Error
	return n, err
}

func (r *productionRepo) ListPostBillingOverridden(ctx context.Context, contractID uuid.UUID) ([]model.ProductionEntry, error) {
	var entries []model.ProductionEntry
	err := r.db.WithContext(ctx).
		Preload("Overrides", overridesByRevision).
		Where("contract_id = ? AND is_billed = true", contractID).
		Where("EXISTS (SELECT 1 FROM stitch_overrides o WHERE o.production_entry_id = production_entries.id AND o.post_billing = true)").
		Order("production_date ASC, created_at ASC").
		Find(&entries).Error
	return entries, err
}
