package repository

import (
	"context"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillingRepository is append-mostly: records are inserted and approved,
// never edited or deleted.
type BillingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, b *model.BillingRecord) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.BillingRecord, error)
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.BillingRecord, error)
	// Approve flips a pending record; ErrNoRowsAffected when it is no longer pending.
	Approve(ctx context.Context, tx *gorm.DB, id uuid.UUID, approver string, at time.Time) error
	ListByEntry(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) ([]model.BillingRecord, error)
	List(ctx context.Context, filter dto.BillingFilter) ([]model.BillingRecord, int64, error)
	// SumApproved totals total_amount of approved records of both kinds with
	// billing_date <= asOf.
	SumApproved(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, asOf time.Time) (decimal.Decimal, error)
	DB() *gorm.DB
}

type billingRepo struct{ db *gorm.DB }

func NewBillingRepository(db *gorm.DB) BillingRepository { return &billingRepo{db: db} }

func (r *billingRepo) DB() *gorm.DB { return r.db }

func (r *billingRepo) Create(ctx context.Context, tx *gorm.DB, b *model.BillingRecord) error {
	return conn(r.db, tx).WithContext(ctx).Create(b).Error
}

func (r *billingRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.BillingRecord, error) {
	var b model.BillingRecord
	err := conn(r.db, tx).WithContext(ctx).First(&b, "id = ?", id).Error
	return &b, err
}

func (r *billingRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.BillingRecord, error) {
	var b model.BillingRecord
	err := conn(r.db, tx).WithContext(ctx).Clauses(forUpdate).First(&b, "id = ?", id).Error
	return &b, err
}

func (r *billingRepo) Approve(ctx context.Context, tx *gorm.DB, id uuid.UUID, approver string, at time.Time) error {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.BillingRecord{}).
		Where("id = ? AND status = ?", id, model.BillingPending).
		Updates(map[string]interface{}{
			"status":      model.BillingApproved,
			"approved_by": approver,
			"approved_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *billingRepo) ListByEntry(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) ([]model.BillingRecord, error) {
	var out []model.BillingRecord
	err := conn(r.db, tx).WithContext(ctx).
		Where("production_entry_id = ?", entryID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *billingRepo) List(ctx context.Context, filter dto.BillingFilter) ([]model.BillingRecord, int64, error) {
	var out []model.BillingRecord
	var total int64

	q := r.db.WithContext(ctx).Model(&model.BillingRecord{})
	if filter.ContractID != "" {
		q = q.Where("contract_id = ?", filter.ContractID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.From != "" {
		q = q.Where("billing_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("billing_date <= ?", filter.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, filter.Page, filter.Limit).Order("billing_date DESC, created_at DESC").Find(&out).Error
	return out, total, err
}

func (r *billingRepo) SumApproved(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	var row struct{ Total decimal.Decimal }
	err := conn(r.db, tx).WithContext(ctx).Model(&model.BillingRecord{}).
		Select("COALESCE(SUM(total_amount), 0) AS total").
		Where("contract_id = ? AND status = ? AND billing_date <= ?", contractID, model.BillingApproved, asOf).
		Scan(&row).Error
	return row.Total, err
}
