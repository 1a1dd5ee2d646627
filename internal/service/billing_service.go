package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/infra"
	"stitchbill/internal/model"
	"stitchbill/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Locker hands out exclusive, short-lived locks. *infra.RedisLocker
// implements it; a held key yields infra.ErrLockHeld.
type Locker interface {
	TryLock(ctx context.Context, key string) (infra.Lock, error)
}

// BillingService turns production into priced billing records.
// pending --approve--> approved; approved records are never modified.
type BillingService interface {
	GenerateBilling(ctx context.Context, actor string, req dto.GenerateBillingRequest) (*dto.GenerateBillingResponse, error)
	Approve(ctx context.Context, approver string, id uuid.UUID) (*dto.BillingRecordResponse, error)
	ListCorrections(ctx context.Context, contractID uuid.UUID) ([]dto.CorrectionResponse, error)
	Compensate(ctx context.Context, actor string, entryID uuid.UUID) (*dto.BillingRecordResponse, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*dto.BillingRecordResponse, error)
	ListRecords(ctx context.Context, filter dto.BillingFilter) (*dto.ListResponse[dto.BillingRecordResponse], error)
}

type billingService struct {
	repo           repository.BillingRepository
	productionRepo repository.ProductionRepository
	contractRepo   repository.ContractRepository
	rateRepo       repository.RateRepository
	audit          AuditService
	locker         Locker // optional; nil relies on row locks alone
}

func NewBillingService(
	repo repository.BillingRepository,
	productionRepo repository.ProductionRepository,
	contractRepo repository.ContractRepository,
	rateRepo repository.RateRepository,
	audit AuditService,
	locker Locker,
) BillingService {
	return &billingService{
		repo:           repo,
		productionRepo: productionRepo,
		contractRepo:   contractRepo,
		rateRepo:       rateRepo,
		audit:          audit,
		locker:         locker,
	}
}

func billingLockKey(contractID uuid.UUID, date time.Time, shift string) string {
	return fmt.Sprintf("billing:%s:%s:%s", contractID, date.Format(dateLayout), shift)
}

// ── GenerateBilling ───────────────────────────────────────────────────────────
// Three layers keep an entry from being billed twice:
//   1. Redis lock per contract/date/shift (fast rejection of parallel requests)
//   2. SELECT … FOR UPDATE NOWAIT on the candidate entries
//   3. partial unique index: one regular record per production entry
// Any of them tripping surfaces as ErrConcurrentBillingConflict.

func (s *billingService) GenerateBilling(ctx context.Context, actor string, req dto.GenerateBillingRequest) (*dto.GenerateBillingResponse, error) {
	contractID, err := parseID(req.ContractID)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.BillingDate)
	if err != nil {
		return nil, err
	}
	if req.Shift != model.ShiftDay && req.Shift != model.ShiftNight {
		return nil, ErrInvalidShift
	}
	var gatePassID *uuid.UUID
	if req.GatePassID != nil {
		id, err := parseID(*req.GatePassID)
		if err != nil {
			return nil, err
		}
		gatePassID = &id
	}

	if s.locker != nil {
		lock, err := s.locker.TryLock(ctx, billingLockKey(contractID, date, req.Shift))
		switch {
		case errors.Is(err, infra.ErrLockHeld):
			return nil, ErrConcurrentBillingConflict
		case err != nil:
			// row locks still hold; a Redis outage must not stop billing
			log.Warn().Err(err).Msg("billing lock unavailable, continuing on row locks")
		default:
			defer func() {
				if err := lock.Release(context.Background()); err != nil {
					log.Warn().Err(err).Msg("billing lock release failed")
				}
			}()
		}
	}

	var records []model.BillingRecord
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		c, err := s.contractRepo.FindByIDForShare(ctx, tx, contractID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrContractNotFound
			}
			return err
		}
		if c.Status != model.ContractActive {
			return ErrContractNotActive
		}

		base, err := s.rateRepo.CurrentBaseRate(ctx, tx)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrNoActiveRate
			}
			return err
		}

		entries, err := s.productionRepo.LockUnbilledForBilling(ctx, tx, contractID, date, req.Shift)
		if err != nil {
			if repository.IsLockNotAvailable(err) {
				return ErrConcurrentBillingConflict
			}
			return err
		}
		if len(entries) == 0 {
			return ErrNoEligibleEntries
		}

		designs, err := s.designsFor(ctx, tx, entries)
		if err != nil {
			return err
		}

		for _, e := range entries {
			d, ok := designs[e.DesignID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrDesignNotFound, e.DesignID)
			}
			rec := priceEntry(e, base.RatePerStitch, d.ElementRates())
			rec.GatePassID = gatePassID
			rec.CreatedBy = actor

			if err := s.repo.Create(ctx, tx, &rec); err != nil {
				if repository.IsUniqueViolation(err) || repository.IsLockNotAvailable(err) {
					return ErrConcurrentBillingConflict
				}
				return err
			}
			if err := s.productionRepo.MarkBilled(ctx, tx, e.ID, rec.ID); err != nil {
				if errors.Is(err, repository.ErrNoRowsAffected) {
					return ErrConcurrentBillingConflict
				}
				return err
			}
			if err := s.audit.Record(ctx, tx, AuditEntry{
				Table: "billing_records", RecordID: rec.ID, Action: model.AuditInsert, New: rec, Actor: actor,
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	resp := &dto.GenerateBillingResponse{Count: len(records), TotalAmount: decimal.Zero}
	for i := range records {
		resp.Records = append(resp.Records, billingToResponse(&records[i]))
		resp.TotalAmount = resp.TotalAmount.Add(records[i].TotalAmount)
	}
	log.Info().
		Str("contract_id", contractID.String()).
		Str("date", req.BillingDate).
		Str("shift", req.Shift).
		Int("records", resp.Count).
		Str("total", resp.TotalAmount.StringFixed(2)).
		Msg("billing generated")
	return resp, nil
}

func (s *billingService) designsFor(ctx context.Context, tx *gorm.DB, entries []model.ProductionEntry) (map[uuid.UUID]model.Design, error) {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, e := range entries {
		if !seen[e.DesignID] {
			seen[e.DesignID] = true
			ids = append(ids, e.DesignID)
		}
	}
	designs, err := s.contractRepo.FindDesignsByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]model.Design, len(designs))
	for _, d := range designs {
		out[d.ID] = d
	}
	return out, nil
}

// priceEntry builds the pending regular record for one entry with the rate
// snapshot copied in.
func priceEntry(e model.ProductionEntry, base, elements decimal.Decimal) model.BillingRecord {
	stitches := model.ResolveStitches(e.ActualStitches, e.Overrides)
	return model.BillingRecord{
		ContractID:        e.ContractID,
		MachineID:         e.MachineID,
		ProductionEntryID: e.ID,
		BillingDate:       e.ProductionDate,
		Shift:             e.Shift,
		Kind:              model.BillingRegular,
		TotalStitches:     stitches,
		BaseRate:          base,
		ElementRates:      elements,
		EffectiveRate:     base.Add(elements),
		TotalAmount:       model.ComputeAmount(stitches, base, elements),
		Status:            model.BillingPending,
	}
}

// ── Approve ───────────────────────────────────────────────────────────────────

func (s *billingService) Approve(ctx context.Context, approver string, id uuid.UUID) (*dto.BillingRecordResponse, error) {
	var approved model.BillingRecord
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		rec, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRecordNotFound
			}
			return err
		}
		if rec.Status == model.BillingApproved {
			return ErrAlreadyApproved
		}

		now := time.Now().UTC()
		if err := s.repo.Approve(ctx, tx, id, approver, now); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrAlreadyApproved
			}
			return err
		}
		old := *rec
		approved = *rec
		approved.Status = model.BillingApproved
		approved.ApprovedBy = &approver
		approved.ApprovedAt = &now
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "billing_records", RecordID: id, Action: model.AuditUpdate, Old: old, New: approved, Actor: approver,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	resp := billingToResponse(&approved)
	return &resp, nil
}

// ── Corrections / compensation ────────────────────────────────────────────────
// An override applied after billing leaves the approved record untouched. The
// stitch delta is billed separately through a compensating record priced with
// the original record's rate snapshot.

type entryBilling struct {
	regular        *model.BillingRecord
	billedStitches int64
}

func summarizeBilling(records []model.BillingRecord) entryBilling {
	var out entryBilling
	for i := range records {
		r := &records[i]
		if r.Kind == model.BillingRegular {
			out.regular = r
		}
		out.billedStitches += r.TotalStitches
	}
	return out
}

func (s *billingService) ListCorrections(ctx context.Context, contractID uuid.UUID) ([]dto.CorrectionResponse, error) {
	entries, err := s.productionRepo.ListPostBillingOverridden(ctx, contractID)
	if err != nil {
		return nil, err
	}
	out := []dto.CorrectionResponse{}
	for _, e := range entries {
		records, err := s.repo.ListByEntry(ctx, nil, e.ID)
		if err != nil {
			return nil, err
		}
		sum := summarizeBilling(records)
		if sum.regular == nil {
			continue
		}
		resolved := model.ResolveStitches(e.ActualStitches, e.Overrides)
		delta := resolved - sum.billedStitches
		if delta == 0 {
			continue
		}
		out = append(out, dto.CorrectionResponse{
			ProductionEntryID: e.ID.String(),
			BillingRecordID:   sum.regular.ID.String(),
			BilledStitches:    sum.billedStitches,
			ResolvedStitches:  resolved,
			StitchDelta:       delta,
			EffectiveRate:     sum.regular.EffectiveRate,
			AmountDelta:       model.ComputeAmount(delta, sum.regular.BaseRate, sum.regular.ElementRates),
		})
	}
	return out, nil
}

func (s *billingService) Compensate(ctx context.Context, actor string, entryID uuid.UUID) (*dto.BillingRecordResponse, error) {
	var rec model.BillingRecord
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// the entry lock serialises concurrent compensations of the same entry
		e, err := s.productionRepo.LockByID(ctx, tx, entryID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrEntryNotFound
			}
			return err
		}
		if !e.IsBilled {
			return ErrEntryNotBilled
		}

		records, err := s.repo.ListByEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		sum := summarizeBilling(records)
		if sum.regular == nil {
			return ErrEntryNotBilled
		}
		delta := model.ResolveStitches(e.ActualStitches, e.Overrides) - sum.billedStitches
		if delta == 0 {
			return ErrNothingToCompensate
		}

		orig := sum.regular
		compensates := orig.ID
		rec = model.BillingRecord{
			ContractID:        orig.ContractID,
			MachineID:         orig.MachineID,
			ProductionEntryID: e.ID,
			BillingDate:       today(),
			Shift:             orig.Shift,
			Kind:              model.BillingCompensating,
			CompensatesID:     &compensates,
			TotalStitches:     delta,
			BaseRate:          orig.BaseRate,
			ElementRates:      orig.ElementRates,
			EffectiveRate:     orig.EffectiveRate,
			TotalAmount:       model.ComputeAmount(delta, orig.BaseRate, orig.ElementRates),
			GatePassID:        orig.GatePassID,
			Status:            model.BillingPending,
			CreatedBy:         actor,
		}
		if err := s.repo.Create(ctx, tx, &rec); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "billing_records", RecordID: rec.ID, Action: model.AuditInsert, New: rec, Actor: actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	log.Info().
		Str("entry_id", entryID.String()).
		Int64("stitch_delta", rec.TotalStitches).
		Str("amount", rec.TotalAmount.StringFixed(2)).
		Msg("compensating record created")
	resp := billingToResponse(&rec)
	return &resp, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *billingService) GetRecord(ctx context.Context, id uuid.UUID) (*dto.BillingRecordResponse, error) {
	rec, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	resp := billingToResponse(rec)
	return &resp, nil
}

func (s *billingService) ListRecords(ctx context.Context, filter dto.BillingFilter) (*dto.ListResponse[dto.BillingRecordResponse], error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.BillingRecordResponse, len(records))
	for i := range records {
		data[i] = billingToResponse(&records[i])
	}
	return &dto.ListResponse[dto.BillingRecordResponse]{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func billingToResponse(b *model.BillingRecord) dto.BillingRecordResponse {
	return dto.BillingRecordResponse{
		ID:                b.ID.String(),
		ContractID:        b.ContractID.String(),
		MachineID:         b.MachineID.String(),
		ProductionEntryID: b.ProductionEntryID.String(),
		BillingDate:       b.BillingDate.Format(dateLayout),
		Shift:             b.Shift,
		Kind:              b.Kind,
		CompensatesID:     uuidString(b.CompensatesID),
		TotalStitches:     b.TotalStitches,
		BaseRate:          b.BaseRate,
		ElementRates:      b.ElementRates,
		EffectiveRate:     b.EffectiveRate,
		TotalAmount:       b.TotalAmount,
		GatePassID:        uuidString(b.GatePassID),
		Status:            b.Status,
		ApprovedBy:        b.ApprovedBy,
		ApprovedAt:        formatTime(b.ApprovedAt),
		CreatedBy:         b.CreatedBy,
		CreatedAt:         b.CreatedAt.Format(time.RFC3339),
	}
}
