package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ContractService manages contracts and their designs. Designs freeze the
// selected rate elements' rates at creation time.
type ContractService interface {
	CreateContract(ctx context.Context, actor string, req dto.CreateContractRequest) (*model.Contract, error)
	CreateDesign(ctx context.Context, actor string, contractID uuid.UUID, req dto.CreateDesignRequest) (*model.Design, error)
	ActivateContract(ctx context.Context, actor string, id uuid.UUID) (*model.Contract, error)
	CompleteContract(ctx context.Context, actor string, id uuid.UUID) (*model.Contract, error)
	CancelContract(ctx context.Context, actor string, id uuid.UUID) (*model.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	ListContracts(ctx context.Context, filter dto.ContractFilter) (*dto.ListResponse[model.Contract], error)
}

type contractService struct {
	repo           repository.ContractRepository
	rateRepo       repository.RateRepository
	productionRepo repository.ProductionRepository
	audit          AuditService
}

func NewContractService(
	repo repository.ContractRepository,
	rateRepo repository.RateRepository,
	productionRepo repository.ProductionRepository,
	audit AuditService,
) ContractService {
	return &contractService{repo: repo, rateRepo: rateRepo, productionRepo: productionRepo, audit: audit}
}

// FormatContractNumber renders a sequence value as CN-000001.
func FormatContractNumber(n int64) string {
	return fmt.Sprintf("CN-%06d", n)
}

func (s *contractService) CreateContract(ctx context.Context, actor string, req dto.CreateContractRequest) (*model.Contract, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	c := model.Contract{
		PartyName: strings.TrimSpace(req.PartyName),
		PONumber:  strings.TrimSpace(req.PONumber),
		StartDate: start,
		Status:    model.ContractDraft,
		CreatedBy: actor,
	}
	if req.EndDate != nil {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, ErrInvalidDateRange
		}
		c.EndDate = &end
	}
	if req.ValuationRate != nil {
		if !positiveAt(*req.ValuationRate, valuationScale) {
			return nil, ErrInvalidRate
		}
		v := *req.ValuationRate
		c.ValuationRate = &v
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if req.ContractNumber != nil && strings.TrimSpace(*req.ContractNumber) != "" {
			c.ContractNumber = strings.TrimSpace(*req.ContractNumber)
		} else {
			n, err := s.repo.NextContractNumber(ctx, tx)
			if err != nil {
				return err
			}
			c.ContractNumber = FormatContractNumber(n)
		}

		exists, err := s.repo.NumberExists(ctx, tx, c.ContractNumber)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateContractNumber
		}
		if err := s.repo.Create(ctx, tx, &c); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicateContractNumber
			}
			return err
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "contracts", RecordID: c.ID, Action: model.AuditInsert, New: c, Actor: actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	log.Info().Str("contract", c.ContractNumber).Str("party", c.PartyName).Msg("contract created")
	return &c, nil
}

func (s *contractService) CreateDesign(ctx context.Context, actor string, contractID uuid.UUID, req dto.CreateDesignRequest) (*model.Design, error) {
	elementIDs := make([]uuid.UUID, 0, len(req.RateElementIDs))
	seen := make(map[uuid.UUID]bool, len(req.RateElementIDs))
	for _, raw := range req.RateElementIDs {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, ErrDuplicateRateElements
		}
		seen[id] = true
		elementIDs = append(elementIDs, id)
	}

	var d model.Design
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		c, err := s.repo.FindByIDForShare(ctx, tx, contractID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrContractNotFound
			}
			return err
		}
		if c.Status != model.ContractDraft && c.Status != model.ContractActive {
			return ErrContractNotOpen
		}

		number := strings.TrimSpace(req.DesignNumber)
		exists, err := s.repo.DesignNumberExists(ctx, tx, contractID, number)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateDesignNumber
		}

		elements, err := s.rateRepo.FindElementsByIDs(ctx, tx, elementIDs)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]model.RateElement, len(elements))
		for _, e := range elements {
			byID[e.ID] = e
		}

		d = model.Design{
			ContractID:      contractID,
			DesignNumber:    number,
			Description:     strings.TrimSpace(req.Description),
			PlannedQuantity: req.PlannedQuantity,
			PlannedStitches: req.PlannedStitches,
			Active:          true,
			CreatedBy:       actor,
		}
		// snapshots keep request order
		for _, id := range elementIDs {
			e, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: %s", ErrRateElementNotFound, id)
			}
			if !e.Active {
				return fmt.Errorf("%w: %s", ErrRateElementInactive, e.Name)
			}
			d.RateElements = append(d.RateElements, model.DesignRateElement{
				RateElementID: e.ID,
				ElementName:   e.Name,
				RatePerStitch: e.RatePerStitch,
			})
		}

		if err := s.repo.CreateDesign(ctx, tx, &d); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicateDesignNumber
			}
			return err
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "designs", RecordID: d.ID, Action: model.AuditInsert, New: d, Actor: actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	return &d, nil
}

func (s *contractService) ActivateContract(ctx context.Context, actor string, id uuid.UUID) (*model.Contract, error) {
	return s.transition(ctx, actor, id, model.ContractActive)
}

// CompleteContract refuses while any live entry of the contract is unbilled.
func (s *contractService) CompleteContract(ctx context.Context, actor string, id uuid.UUID) (*model.Contract, error) {
	return s.transition(ctx, actor, id, model.ContractCompleted)
}

func (s *contractService) CancelContract(ctx context.Context, actor string, id uuid.UUID) (*model.Contract, error) {
	return s.transition(ctx, actor, id, model.ContractCancelled)
}

func (s *contractService) transition(ctx context.Context, actor string, id uuid.UUID, next string) (*model.Contract, error) {
	var updated model.Contract
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		c, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrContractNotFound
			}
			return err
		}
		if !c.CanTransition(next) {
			return fmt.Errorf("%w: %s → %s", ErrInvalidStatusTransition, c.Status, next)
		}
		if next == model.ContractCompleted {
			unbilled, err := s.productionRepo.CountUnbilled(ctx, tx, id)
			if err != nil {
				return err
			}
			if unbilled > 0 {
				return fmt.Errorf("%w (%d entries)", ErrUnbilledProductionExists, unbilled)
			}
		}

		if err := s.repo.UpdateStatus(ctx, tx, id, c.Status, next); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrConcurrentUpdate
			}
			return err
		}
		updated = *c
		updated.Status = next
		return s.audit.Record(ctx, tx, AuditEntry{
			Table:    "contracts",
			RecordID: id,
			Action:   model.AuditUpdate,
			Old:      map[string]string{"status": c.Status},
			New:      map[string]string{"status": next},
			Actor:    actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	log.Info().Str("contract", updated.ContractNumber).Str("status", next).Msg("contract status changed")
	return &updated, nil
}

func (s *contractService) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *contractService) ListContracts(ctx context.Context, filter dto.ContractFilter) (*dto.ListResponse[model.Contract], error) {
	contracts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.ListResponse[model.Contract]{Data: contracts, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
