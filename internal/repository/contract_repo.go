package repository

import (
	"context"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContractRepository covers contracts, their designs and the per-design
// rate element snapshots.
type ContractRepository interface {
	// NextContractNumber draws from contract_number_seq; must run in a tx.
	NextContractNumber(ctx context.Context, tx *gorm.DB) (int64, error)
	NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	Create(ctx context.Context, tx *gorm.DB, c *model.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	// FindByIDForShare takes a FOR SHARE lock: billing holds it so that a
	// concurrent reconcile (FOR UPDATE) waits for the billing tx to finish.
	FindByIDForShare(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Contract, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Contract, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) error
	List(ctx context.Context, filter dto.ContractFilter) ([]model.Contract, int64, error)

	CreateDesign(ctx context.Context, tx *gorm.DB, d *model.Design) error
	FindDesignByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Design, error)
	FindDesignsByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.Design, error)
	DesignNumberExists(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, number string) (bool, error)

	DB() *gorm.DB
}

type contractRepo struct{ db *gorm.DB }

func NewContractRepository(db *gorm.DB) ContractRepository { return &contractRepo{db: db} }

func (r *contractRepo) DB() *gorm.DB { return r.db }

func (r *contractRepo) NextContractNumber(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	err := conn(r.db, tx).WithContext(ctx).Raw("SELECT nextval('contract_number_seq')").Scan(&n).Error
	return n, err
}

func (r *contractRepo) NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	var count int64
	// Unscoped: a soft-deleted contract still owns its number
	err := conn(r.db, tx).WithContext(ctx).Unscoped().Model(&model.Contract{}).
		Where("contract_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *contractRepo) Create(ctx context.Context, tx *gorm.DB, c *model.Contract) error {
	return conn(r.db, tx).WithContext(ctx).Omit("Designs").Create(c).Error
}

func (r *contractRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var c model.Contract
	err := r.db.WithContext(ctx).
		Preload("Designs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Designs.RateElements").
		First(&c, "id = ?", id).Error
	return &c, err
}

func (r *contractRepo) FindByIDForShare(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Contract, error) {
	var c model.Contract
	err := conn(r.db, tx).WithContext(ctx).Clauses(forShare).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *contractRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Contract, error) {
	var c model.Contract
	err := conn(r.db, tx).WithContext(ctx).Clauses(forUpdate).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *contractRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string) error {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.Contract{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *contractRepo) List(ctx context.Context, filter dto.ContractFilter) ([]model.Contract, int64, error) {
	var contracts []model.Contract
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Contract{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PartyName != "" {
		q = q.Where("party_name ILIKE ?", "%"+filter.PartyName+"%")
	}
	if filter.From != "" {
		q = q.Where("start_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("start_date <= ?", filter.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(q, filter.Page, filter.Limit).Order("created_at DESC").Find(&contracts).Error
	return contracts, total, err
}

func (r *contractRepo) CreateDesign(ctx context.Context, tx *gorm.DB, d *model.Design) error {
	// RateElements are inserted with the design through the has-many association
	return conn(r.db, tx).WithContext(ctx).Create(d).Error
}

func (r *contractRepo) FindDesignByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Design, error) {
	var d model.Design
	err := conn(r.db, tx).WithContext(ctx).Preload("RateElements").First(&d, "id = ?", id).Error
	return &d, err
}

func (r *contractRepo) FindDesignsByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.Design, error) {
	var out []model.Design
	if len(ids) == 0 {
		return out, nil
	}
	err := conn(r.db, tx).WithContext(ctx).Preload("RateElements").Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *contractRepo) DesignNumberExists(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, number string) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).Model(&model.Design{}).
		Where("contract_id = ? AND design_number = ?", contractID, number).Count(&count).Error
	return count > 0, err
}
