package service

import (
	"context"
	"encoding/json"
	"fmt"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEntry describes one logical mutation. Old and New are marshalled to
// JSON as-is; nil becomes JSON null.
type AuditEntry struct {
	Table    string
	RecordID uuid.UUID
	Action   string
	Old      interface{}
	New      interface{}
	Actor    string
}

type AuditService interface {
	// Record writes the log row inside tx. Callers pass the same tx as the
	// mutation so a rolled-back mutation leaves no audit row behind.
	Record(ctx context.Context, tx *gorm.DB, e AuditEntry) error
	List(ctx context.Context, filter dto.AuditFilter) (*dto.ListResponse[model.AuditLog], error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Record(ctx context.Context, tx *gorm.DB, e AuditEntry) error {
	oldJSON, err := json.Marshal(e.Old)
	if err != nil {
		return fmt.Errorf("audit: marshal old values: %w", err)
	}
	newJSON, err := json.Marshal(e.New)
	if err != nil {
		return fmt.Errorf("audit: marshal new values: %w", err)
	}
	l := &model.AuditLog{
		EntityTable: e.Table,
		RecordID:    e.RecordID,
		Action:      e.Action,
		OldValues:   string(oldJSON),
		NewValues:   string(newJSON),
		Actor:       e.Actor,
	}
	if err := s.repo.Create(ctx, tx, l); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

func (s *auditService) List(ctx context.Context, filter dto.AuditFilter) (*dto.ListResponse[model.AuditLog], error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.ListResponse[model.AuditLog]{Data: logs, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
