package repository

import (
	"context"
	"time"

	"stitchbill/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GatePassRepository reads the locally replicated gate_passes table.
type GatePassRepository interface {
	OutwardMovements(ctx context.Context, contractID uuid.UUID, asOf time.Time) ([]model.GatePass, error)
}

type gatePassRepo struct{ db *gorm.DB }

func NewGatePassRepository(db *gorm.DB) GatePassRepository { return &gatePassRepo{db: db} }

func (r *gatePassRepo) OutwardMovements(ctx context.Context, contractID uuid.UUID, asOf time.Time) ([]model.GatePass, error) {
	var out []model.GatePass
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND direction = ? AND movement_date <= ?", contractID, model.GatePassOutward, asOf).
		Order("movement_date ASC").
		Find(&out).Error
	return out, err
}
