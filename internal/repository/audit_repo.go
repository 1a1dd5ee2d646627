package repository

import (
	"context"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"

	"gorm.io/gorm"
)

// AuditRepository only ever inserts; there is no update or delete path.
type AuditRepository interface {
	Create(ctx context.Context, tx *gorm.DB, l *model.AuditLog) error
	List(ctx context.Context, filter dto.AuditFilter) ([]model.AuditLog, int64, error)
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Create(ctx context.Context, tx *gorm.DB, l *model.AuditLog) error {
	return conn(r.db, tx).WithContext(ctx).Create(l).Error
}

func (r *auditRepo) List(ctx context.Context, filter dto.AuditFilter) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	var total int64

	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.TableName != "" {
		q = q.Where("table_name = ?", filter.TableName)
	}
	if filter.RecordID != "" {
		q = q.Where("record_id = ?", filter.RecordID)
	}
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := paginate(q, filter.Page, filter.Limit).Order("created_at DESC").Find(&out).Error
	return out, total, err
}
