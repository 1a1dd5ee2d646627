package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/repository"
	"stitchbill/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShipmentSource lists outward gate-pass movements for a contract up to and
// including asOf. Implemented by the gate_passes repository and by the
// inventory HTTP client.
type ShipmentSource interface {
	OutwardMovements(ctx context.Context, contractID uuid.UUID, asOf time.Time) ([]model.GatePass, error)
}

// AlertDispatcher is satisfied by *worker.Dispatcher.
type AlertDispatcher interface {
	EnqueueAlert(ctx context.Context, payload worker.AlertJobPayload) error
}

// ReconciliationService compares approved production value with shipped value.
type ReconciliationService interface {
	Reconcile(ctx context.Context, actor string, req dto.ReconcileRequest) (*dto.ReconcileResponse, error)
	Resolve(ctx context.Context, resolver string, id uuid.UUID, notes string) (*model.ReconciliationRecord, error)
	Escalate(ctx context.Context, actor string, id uuid.UUID) (*model.ReconciliationRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*model.ReconciliationRecord, error)
	ListRecords(ctx context.Context, filter dto.ReconciliationFilter) (*dto.ListResponse[model.ReconciliationRecord], error)
}

type reconciliationService struct {
	repo         repository.ReconciliationRepository
	billingRepo  repository.BillingRepository
	contractRepo repository.ContractRepository
	shipments    ShipmentSource
	audit        AuditService
	dispatcher   AlertDispatcher // nil disables alerts
	tolerance    decimal.Decimal
}

func NewReconciliationService(
	repo repository.ReconciliationRepository,
	billingRepo repository.BillingRepository,
	contractRepo repository.ContractRepository,
	shipments ShipmentSource,
	audit AuditService,
	dispatcher AlertDispatcher,
	tolerance decimal.Decimal,
) ReconciliationService {
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}
	return &reconciliationService{
		repo:         repo,
		billingRepo:  billingRepo,
		contractRepo: contractRepo,
		shipments:    shipments,
		audit:        audit,
		dispatcher:   dispatcher,
		tolerance:    tolerance,
	}
}

// ShippedValue prices outward movements: round2(Σ quantity × rate).
func ShippedValue(movements []model.GatePass, rate decimal.Decimal) decimal.Decimal {
	qty := decimal.Zero
	for _, m := range movements {
		if m.Direction == model.GatePassOutward {
			qty = qty.Add(m.Quantity)
		}
	}
	return model.RoundMoney(qty.Mul(rate))
}

func (s *reconciliationService) Reconcile(ctx context.Context, actor string, req dto.ReconcileRequest) (*dto.ReconcileResponse, error) {
	contractID, err := parseID(req.ContractID)
	if err != nil {
		return nil, err
	}
	asOf, err := parseDate(req.AsOfDate)
	if err != nil {
		return nil, err
	}
	if req.ValuationRate != nil && !req.ValuationRate.IsPositive() {
		return nil, ErrInvalidRate
	}

	// read the contract outside the tx first so an unknown id or missing rate
	// fails before the gate-pass call
	c, err := s.contractRepo.FindByID(ctx, contractID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	var rate decimal.Decimal
	switch {
	case req.ValuationRate != nil:
		rate = *req.ValuationRate
	case c.ValuationRate != nil && c.ValuationRate.IsPositive():
		rate = *c.ValuationRate
	default:
		return nil, ErrNoValuationRate
	}

	movements, err := s.shipments.OutwardMovements(ctx, contractID, asOf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShipmentsUnavailable, err)
	}
	shipped := ShippedValue(movements, rate)

	resp := &dto.ReconcileResponse{
		ContractID:        contractID.String(),
		AsOfDate:          req.AsOfDate,
		TotalShippedValue: shipped,
		Tolerance:         s.tolerance,
	}
	var alert bool

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if _, err := s.contractRepo.FindByIDForUpdate(ctx, tx, contractID); err != nil {
			if repository.IsNotFound(err) {
				return ErrContractNotFound
			}
			return err
		}
		production, err := s.billingRepo.SumApproved(ctx, tx, contractID, asOf)
		if err != nil {
			return err
		}
		production = model.RoundMoney(production)
		discrepancy := production.Sub(shipped)
		exceeds := discrepancy.Abs().GreaterThan(s.tolerance)

		resp.TotalProductionValue = production
		resp.DiscrepancyAmount = discrepancy
		resp.WithinTolerance = !exceeds

		existing, err := s.repo.FindByKey(ctx, tx, contractID, asOf)
		if err != nil && !repository.IsNotFound(err) {
			return err
		}
		if err != nil {
			existing = nil
		}

		if existing != nil && existing.Status != model.ReconciliationPending {
			return fmt.Errorf("%w: %s", ErrReconciliationClosed, existing.Status)
		}

		switch {
		case existing == nil && !exceeds:
			return nil

		case existing == nil:
			rec := model.ReconciliationRecord{
				ContractID:           contractID,
				ReconciliationDate:   asOf,
				TotalProductionValue: production,
				TotalShippedValue:    shipped,
				DiscrepancyAmount:    discrepancy,
				Tolerance:            s.tolerance,
				Status:               model.ReconciliationPending,
			}
			if err := s.repo.Create(ctx, tx, &rec); err != nil {
				if repository.IsUniqueViolation(err) {
					return ErrConcurrentUpdate
				}
				return err
			}
			resp.Record = &rec
			alert = true
			return s.audit.Record(ctx, tx, AuditEntry{
				Table: "reconciliation_records", RecordID: rec.ID, Action: model.AuditInsert, New: rec, Actor: actor,
			})

		default:
			old := *existing
			changed := !old.TotalProductionValue.Equal(production) ||
				!old.TotalShippedValue.Equal(shipped) ||
				!old.Tolerance.Equal(s.tolerance)

			existing.TotalProductionValue = production
			existing.TotalShippedValue = shipped
			existing.DiscrepancyAmount = discrepancy
			existing.Tolerance = s.tolerance
			if err := s.repo.Update(ctx, tx, existing); err != nil {
				return err
			}
			resp.Record = existing
			alert = changed && exceeds
			return s.audit.Record(ctx, tx, AuditEntry{
				Table: "reconciliation_records", RecordID: existing.ID, Action: model.AuditUpdate, Old: old, New: *existing, Actor: actor,
			})
		}
	})
	if txErr != nil {
		return nil, txErr
	}

	if resp.Record != nil {
		log.Info().
			Str("contract", c.ContractNumber).
			Str("as_of", req.AsOfDate).
			Str("production", resp.TotalProductionValue.StringFixed(2)).
			Str("shipped", resp.TotalShippedValue.StringFixed(2)).
			Str("discrepancy", resp.DiscrepancyAmount.StringFixed(2)).
			Msg("reconciliation raised")
	}
	if alert {
		s.enqueue(ctx, worker.AlertDiscrepancy, c, resp.Record, actor)
	}
	return resp, nil
}

func (s *reconciliationService) Resolve(ctx context.Context, resolver string, id uuid.UUID, notes string) (*model.ReconciliationRecord, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, ErrNotesRequired
	}
	return s.close(ctx, resolver, id, func(rec *model.ReconciliationRecord, now time.Time) {
		rec.Status = model.ReconciliationResolved
		rec.Notes = &notes
		rec.ResolvedBy = &resolver
		rec.ResolvedAt = &now
	})
}

func (s *reconciliationService) Escalate(ctx context.Context, actor string, id uuid.UUID) (*model.ReconciliationRecord, error) {
	rec, err := s.close(ctx, actor, id, func(rec *model.ReconciliationRecord, now time.Time) {
		rec.Status = model.ReconciliationEscalated
		rec.EscalatedBy = &actor
		rec.EscalatedAt = &now
	})
	if err != nil {
		return nil, err
	}
	if c, err := s.contractRepo.FindByID(ctx, rec.ContractID); err == nil {
		s.enqueue(ctx, worker.AlertEscalation, c, rec, actor)
	} else {
		log.Error().Err(err).Str("reconciliation_id", id.String()).Msg("escalation alert skipped")
	}
	return rec, nil
}

// close moves a pending record to a terminal status under a row lock.
func (s *reconciliationService) close(ctx context.Context, actor string, id uuid.UUID, apply func(*model.ReconciliationRecord, time.Time)) (*model.ReconciliationRecord, error) {
	var updated model.ReconciliationRecord
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		rec, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRecordNotFound
			}
			return err
		}
		if rec.Status != model.ReconciliationPending {
			return fmt.Errorf("%w: reconciliation is %s", ErrInvalidStatusTransition, rec.Status)
		}
		old := *rec
		apply(rec, time.Now().UTC())
		if err := s.repo.Update(ctx, tx, rec); err != nil {
			return err
		}
		updated = *rec
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "reconciliation_records", RecordID: id, Action: model.AuditUpdate, Old: old, New: updated, Actor: actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	return &updated, nil
}

// enqueue runs after commit; a queue failure is logged, never returned.
func (s *reconciliationService) enqueue(ctx context.Context, kind string, c *model.Contract, rec *model.ReconciliationRecord, actor string) {
	if s.dispatcher == nil || rec == nil {
		return
	}
	payload := worker.AlertJobPayload{
		Kind:             kind,
		ReconciliationID: rec.ID.String(),
		ContractID:       rec.ContractID.String(),
		ContractNumber:   c.ContractNumber,
		AsOfDate:         rec.ReconciliationDate.Format(dateLayout),
		ProductionValue:  rec.TotalProductionValue.StringFixed(2),
		ShippedValue:     rec.TotalShippedValue.StringFixed(2),
		Discrepancy:      rec.DiscrepancyAmount.StringFixed(2),
		Actor:            actor,
	}
	if err := s.dispatcher.EnqueueAlert(ctx, payload); err != nil {
		log.Error().Err(err).Str("reconciliation_id", payload.ReconciliationID).Msg("failed to enqueue alert")
	}
}

func (s *reconciliationService) GetRecord(ctx context.Context, id uuid.UUID) (*model.ReconciliationRecord, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *reconciliationService) ListRecords(ctx context.Context, filter dto.ReconciliationFilter) (*dto.ListResponse[model.ReconciliationRecord], error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.ListResponse[model.ReconciliationRecord]{Data: records, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
