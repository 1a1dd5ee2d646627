package repository

import (
	"context"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReconciliationRepository interface {
	// FindByKey locks the record for (contract, date) FOR UPDATE.
	FindByKey(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, date time.Time) (*model.ReconciliationRecord, error)
	Create(ctx context.Context, tx *gorm.DB, rec *model.ReconciliationRecord) error
	Update(ctx context.Context, tx *gorm.DB, rec *model.ReconciliationRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ReconciliationRecord, error)
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ReconciliationRecord, error)
	List(ctx context.Context, filter dto.ReconciliationFilter) ([]model.ReconciliationRecord, int64, error)
	DB() *gorm.DB
}

type reconciliationRepo struct{ db *gorm.DB }

func NewReconciliationRepository(db *gorm.DB) ReconciliationRepository {
	return &reconciliationRepo{db: db}
}

func (r *reconciliationRepo) DB() *gorm.DB { return r.db }

func (r *reconciliationRepo) FindByKey(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, date time.Time) (*model.ReconciliationRecord, error) {
	var rec model.ReconciliationRecord
	err := conn(r.db, tx).WithContext(ctx).Clauses(forUpdate).
		Where("contract_id = ? AND reconciliation_date = ?", contractID, date).
		First(&rec).Error
	return &rec, err
}

func (r *reconciliationRepo) Create(ctx context.Context, tx *gorm.DB, rec *model.ReconciliationRecord) error {
	return conn(r.db, tx).WithContext(ctx).Create(rec).Error
}

func (r *reconciliationRepo) Update(ctx context.Context, tx *gorm.DB, rec *model.ReconciliationRecord) error {
	return conn(r.db, tx).WithContext(ctx).Save(rec).Error
}

func (r *reconciliationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ReconciliationRecord, error) {
	var rec model.ReconciliationRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	return &rec, err
}

func (r *reconciliationRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ReconciliationRecord, error) {
	var rec model.ReconciliationRecord
	err := conn(r.db, tx).WithContext(ctx).Clauses(forUpdate).First(&rec, "id = ?", id).Error
	return &rec, err
}

func (r *reconciliationRepo) List(ctx context.Context, filter dto.ReconciliationFilter) ([]model.ReconciliationRecord, int64, error) {
	var out []model.ReconciliationRecord
	var total int64

	q := r.db.WithContext(ctx).Model(&model.ReconciliationRecord{})
	if filter.ContractID != "" {
		q = q.Where("contract_id = ?", filter.ContractID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != "" {
		q = q.Where("reconciliation_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("reconciliation_date <= ?", filter.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, filter.Page, filter.Limit).Order("reconciliation_date DESC").Find(&out).Error
	return out, total, err
}
