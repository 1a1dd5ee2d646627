package repository

import (
	"context"

	"stitchbill/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MachineRepository interface {
	Create(ctx context.Context, tx *gorm.DB, m *model.Machine) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	FindByCode(ctx context.Context, code string) (*model.Machine, error)
	List(ctx context.Context, includeInactive bool) ([]model.Machine, error)
	DB() *gorm.DB
}

type machineRepo struct{ db *gorm.DB }

func NewMachineRepository(db *gorm.DB) MachineRepository { return &machineRepo{db: db} }

func (r *machineRepo) DB() *gorm.DB { return r.db }

func (r *machineRepo) Create(ctx context.Context, tx *gorm.DB, m *model.Machine) error {
	return conn(r.db, tx).WithContext(ctx).Create(m).Error
}

func (r *machineRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	var m model.Machine
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *machineRepo) FindByCode(ctx context.Context, code string) (*model.Machine, error) {
	var m model.Machine
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&m).Error
	return &m, err
}

func (r *machineRepo) List(ctx context.Context, includeInactive bool) ([]model.Machine, error) {
	var out []model.Machine
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = true")
	}
	err := q.Order("code ASC").Find(&out).Error
	return out, err
}
