package repository

import (
	"context"
	"time"

	"stitchbill/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RateRepository is the data access contract for the base-rate history and
// the rate element catalog.
type RateRepository interface {
	CurrentBaseRate(ctx context.Context, tx *gorm.DB) (*model.BaseRate, error)
	// LockCurrentBaseRate selects the open interval FOR UPDATE so two
	// concurrent rate changes serialise.
	LockCurrentBaseRate(ctx context.Context, tx *gorm.DB) (*model.BaseRate, error)
	CloseBaseRate(ctx context.Context, tx *gorm.DB, id uuid.UUID, effectiveTo time.Time) error
	CreateBaseRate(ctx context.Context, tx *gorm.DB, b *model.BaseRate) error
	ListBaseRates(ctx context.Context) ([]model.BaseRate, error)

	CreateElement(ctx context.Context, tx *gorm.DB, e *model.RateElement) error
	FindElementByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.RateElement, error)
	FindElementByName(ctx context.Context, name string) (*model.RateElement, error)
	FindElementsByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.RateElement, error)
	ListElements(ctx context.Context, includeInactive bool) ([]model.RateElement, error)
	UpdateElement(ctx context.Context, tx *gorm.DB, e *model.RateElement) error

	DB() *gorm.DB
}

type rateRepo struct{ db *gorm.DB }

func NewRateRepository(db *gorm.DB) RateRepository { return &rateRepo{db: db} }

func (r *rateRepo) DB() *gorm.DB { return r.db }

func (r *rateRepo) CurrentBaseRate(ctx context.Context, tx *gorm.DB) (*model.BaseRate, error) {
	var b model.BaseRate
	err := conn(r.db, tx).WithContext(ctx).Where("effective_to IS NULL").First(&b).Error
	return &b, err
}

func (r *rateRepo) LockCurrentBaseRate(ctx context.Context, tx *gorm.DB) (*model.BaseRate, error) {
	var b model.BaseRate
	err := conn(r.db, tx).WithContext(ctx).Clauses(forUpdate).Where("effective_to IS NULL").First(&b).Error
	return &b, err
}

func (r *rateRepo) CloseBaseRate(ctx context.Context, tx *gorm.DB, id uuid.UUID, effectiveTo time.Time) error {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.BaseRate{}).
		Where("id = ? AND effective_to IS NULL", id).
		Update("effective_to", effectiveTo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *rateRepo) CreateBaseRate(ctx context.Context, tx *gorm.DB, b *model.BaseRate) error {
	return conn(r.db, tx).WithContext(ctx).Create(b).Error
}

func (r *rateRepo) ListBaseRates(ctx context.Context) ([]model.BaseRate, error) {
	var out []model.BaseRate
	err := r.db.WithContext(ctx).Order("effective_from DESC").Find(&out).Error
	return out, err
}

func (r *rateRepo) CreateElement(ctx context.Context, tx *gorm.DB, e *model.RateElement) error {
	return conn(r.db, tx).WithContext(ctx).Create(e).Error
}

func (r *rateRepo) FindElementByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.RateElement, error) {
	var e model.RateElement
	err := conn(r.db, tx).WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *rateRepo) FindElementByName(ctx context.Context, name string) (*model.RateElement, error) {
	var e model.RateElement
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&e).Error
	return &e, err
}

func (r *rateRepo) FindElementsByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.RateElement, error) {
	var out []model.RateElement
	if len(ids) == 0 {
		return out, nil
	}
	err := conn(r.db, tx).WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *rateRepo) ListElements(ctx context.Context, includeInactive bool) ([]model.RateElement, error) {
	var out []model.RateElement
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = true")
	}
	err := q.Order("name ASC").Find(&out).Error
	return out, err
}

func (r *rateRepo) UpdateElement(ctx context.Context, tx *gorm.DB, e *model.RateElement) error {
	return conn(r.db, tx).WithContext(ctx).Save(e).Error
}
