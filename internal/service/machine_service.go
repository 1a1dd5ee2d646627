package service

import (
	"context"
	"strings"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MachineService interface {
	Create(ctx context.Context, actor string, req dto.CreateMachineRequest) (*model.Machine, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	List(ctx context.Context, includeInactive bool) ([]model.Machine, error)
}

type machineService struct {
	repo  repository.MachineRepository
	audit AuditService
}

func NewMachineService(repo repository.MachineRepository, audit AuditService) MachineService {
	return &machineService{repo: repo, audit: audit}
}

func (s *machineService) Create(ctx context.Context, actor string, req dto.CreateMachineRequest) (*model.Machine, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, ErrDuplicateMachineCode
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	m := model.Machine{Code: code, Name: strings.TrimSpace(req.Name), Active: true}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, &m); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicateMachineCode
			}
			return err
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "machines", RecordID: m.ID, Action: model.AuditInsert, New: m, Actor: actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	return &m, nil
}

func (s *machineService) Get(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrMachineNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *machineService) List(ctx context.Context, includeInactive bool) ([]model.Machine, error) {
	return s.repo.List(ctx, includeInactive)
}
