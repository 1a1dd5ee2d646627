package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const minOverrideReason = 5

// ProductionService is the production journal. Recorded stitch counts are
// never edited; corrections are appended as overrides and folded on read.
type ProductionService interface {
	RecordEntry(ctx context.Context, actor string, req dto.RecordEntryRequest) (*model.ProductionEntry, error)
	// RecordBulk is all-or-nothing: one failing row persists nothing.
	RecordBulk(ctx context.Context, actor string, req dto.RecordBulkRequest) ([]model.ProductionEntry, error)
	OverrideStitches(ctx context.Context, actor string, entryID uuid.UUID, newStitches int64, reason string) (*model.StitchOverride, error)
	ResolvedStitches(ctx context.Context, entryID uuid.UUID) (int64, error)
	DeleteEntry(ctx context.Context, actor string, id uuid.UUID) error
	GetEntry(ctx context.Context, id uuid.UUID) (*dto.EntryResponse, error)
	ListEntries(ctx context.Context, filter dto.EntryFilter) (*dto.ListResponse[dto.EntryResponse], error)
}

type productionService struct {
	repo         repository.ProductionRepository
	contractRepo repository.ContractRepository
	machineRepo  repository.MachineRepository
	audit        AuditService
}

func NewProductionService(
	repo repository.ProductionRepository,
	contractRepo repository.ContractRepository,
	machineRepo repository.MachineRepository,
	audit AuditService,
) ProductionService {
	return &productionService{repo: repo, contractRepo: contractRepo, machineRepo: machineRepo, audit: audit}
}

// entrySpec is a request after syntactic validation.
type entrySpec struct {
	machineID uuid.UUID
	designID  uuid.UUID
	entry     model.ProductionEntry
}

func parseEntry(req dto.RecordEntryRequest) (*entrySpec, error) {
	machineID, err := parseID(req.MachineID)
	if err != nil {
		return nil, err
	}
	designID, err := parseID(req.DesignID)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.ProductionDate)
	if err != nil {
		return nil, err
	}
	if req.Shift != model.ShiftDay && req.Shift != model.ShiftNight {
		return nil, ErrInvalidShift
	}
	if req.ActualStitches == nil {
		return nil, ErrInvalidStitches
	}
	if *req.ActualStitches < 0 || (req.GenuineStitches != nil && *req.GenuineStitches < 0) || req.RepeatsCompleted < 0 {
		return nil, ErrInvalidStitches
	}
	return &entrySpec{
		machineID: machineID,
		designID:  designID,
		entry: model.ProductionEntry{
			MachineID:        machineID,
			DesignID:         designID,
			ProductionDate:   date,
			Shift:            req.Shift,
			ActualStitches:   *req.ActualStitches,
			GenuineStitches:  req.GenuineStitches,
			RepeatsCompleted: req.RepeatsCompleted,
			OperatorName:     strings.TrimSpace(req.OperatorName),
		},
	}, nil
}

// refCache memoises machine/design/contract checks across a bulk insert.
type refCache struct {
	machines  map[uuid.UUID]error
	designs   map[uuid.UUID]*model.Design
	contracts map[uuid.UUID]error
}

func newRefCache() *refCache {
	return &refCache{
		machines:  map[uuid.UUID]error{},
		designs:   map[uuid.UUID]*model.Design{},
		contracts: map[uuid.UUID]error{},
	}
}

// resolveRefs checks machine, design and contract state and fills ContractID.
// The contract row is share-locked so a concurrent completion cannot slip in
// between the status check and the insert.
func (s *productionService) resolveRefs(ctx context.Context, tx *gorm.DB, spec *entrySpec, cache *refCache) error {
	merr, ok := cache.machines[spec.machineID]
	if !ok {
		m, err := s.machineRepo.FindByID(ctx, spec.machineID)
		switch {
		case repository.IsNotFound(err):
			merr = ErrMachineNotFound
		case err != nil:
			return err
		case !m.Active:
			merr = ErrMachineInactive
		}
		cache.machines[spec.machineID] = merr
	}
	if merr != nil {
		return merr
	}

	d, ok := cache.designs[spec.designID]
	if !ok {
		found, err := s.contractRepo.FindDesignByID(ctx, tx, spec.designID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrDesignNotFound
			}
			return err
		}
		d = found
		cache.designs[spec.designID] = d
	}
	if !d.Active {
		return ErrDesignInactive
	}

	cerr, ok := cache.contracts[d.ContractID]
	if !ok {
		c, err := s.contractRepo.FindByIDForShare(ctx, tx, d.ContractID)
		switch {
		case repository.IsNotFound(err):
			cerr = ErrContractNotFound
		case err != nil:
			return err
		case c.Status != model.ContractActive:
			cerr = ErrContractNotActive
		}
		cache.contracts[d.ContractID] = cerr
	}
	if cerr != nil {
		return cerr
	}

	spec.entry.ContractID = d.ContractID
	return nil
}

func (s *productionService) insert(ctx context.Context, tx *gorm.DB, actor string, e *model.ProductionEntry) error {
	e.CreatedBy = actor
	e.IsBilled = false
	if err := s.repo.Create(ctx, tx, e); err != nil {
		return err
	}
	return s.audit.Record(ctx, tx, AuditEntry{
		Table: "production_entries", RecordID: e.ID, Action: model.AuditInsert, New: e, Actor: actor,
	})
}

func (s *productionService) RecordEntry(ctx context.Context, actor string, req dto.RecordEntryRequest) (*model.ProductionEntry, error) {
	spec, err := parseEntry(req)
	if err != nil {
		return nil, err
	}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.resolveRefs(ctx, tx, spec, newRefCache()); err != nil {
			return err
		}
		return s.insert(ctx, tx, actor, &spec.entry)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &spec.entry, nil
}

func (s *productionService) RecordBulk(ctx context.Context, actor string, req dto.RecordBulkRequest) ([]model.ProductionEntry, error) {
	specs := make([]*entrySpec, len(req.Entries))
	for i, r := range req.Entries {
		spec, err := parseEntry(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		specs[i] = spec
	}

	out := make([]model.ProductionEntry, 0, len(specs))
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		cache := newRefCache()
		for i, spec := range specs {
			if err := s.resolveRefs(ctx, tx, spec, cache); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
		}
		for i, spec := range specs {
			if err := s.insert(ctx, tx, actor, &spec.entry); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			out = append(out, spec.entry)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	log.Info().Int("count", len(out)).Str("actor", actor).Msg("bulk production recorded")
	return out, nil
}

func (s *productionService) OverrideStitches(ctx context.Context, actor string, entryID uuid.UUID, newStitches int64, reason string) (*model.StitchOverride, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < minOverrideReason {
		return nil, ErrReasonTooShort
	}
	if newStitches < 0 {
		return nil, ErrInvalidStitches
	}

	var o model.StitchOverride
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		e, err := s.repo.LockByID(ctx, tx, entryID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrEntryNotFound
			}
			return err
		}

		current := model.ResolveStitches(e.ActualStitches, e.Overrides)
		o = model.StitchOverride{
			ProductionEntryID: e.ID,
			Revision:          model.NextRevision(e.Overrides),
			OriginalStitches:  current,
			NewStitches:       newStitches,
			Reason:            reason,
			OverriddenBy:      actor,
			PostBilling:       e.IsBilled,
		}
		if err := s.repo.CreateOverride(ctx, tx, &o); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrConcurrentUpdate
			}
			return err
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table:    "production_entries",
			RecordID: e.ID,
			Action:   model.AuditOverride,
			Old:      map[string]int64{"stitches": current},
			New: map[string]interface{}{
				"stitches": newStitches,
				"revision": o.Revision,
				"reason":   reason,
			},
			Actor: actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	if o.PostBilling {
		log.Info().
			Str("entry_id", entryID.String()).
			Int64("from", o.OriginalStitches).
			Int64("to", o.NewStitches).
			Msg("override on billed entry; compensation pending")
	}
	return &o, nil
}

func (s *productionService) ResolvedStitches(ctx context.Context, entryID uuid.UUID) (int64, error) {
	e, err := s.repo.FindByID(ctx, nil, entryID)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, ErrEntryNotFound
		}
		return 0, err
	}
	return model.ResolveStitches(e.ActualStitches, e.Overrides), nil
}

func (s *productionService) DeleteEntry(ctx context.Context, actor string, id uuid.UUID) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		e, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrEntryNotFound
			}
			return err
		}
		if e.IsBilled {
			return ErrEntryBilled
		}
		if err := s.repo.SoftDelete(ctx, tx, id); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrEntryBilled
			}
			return err
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "production_entries", RecordID: id, Action: model.AuditDelete, Old: e, Actor: actor,
		})
	})
}

func (s *productionService) GetEntry(ctx context.Context, id uuid.UUID) (*dto.EntryResponse, error) {
	e, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	resp := entryToResponse(*e)
	return &resp, nil
}

func (s *productionService) ListEntries(ctx context.Context, filter dto.EntryFilter) (*dto.ListResponse[dto.EntryResponse], error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.EntryResponse, len(entries))
	for i, e := range entries {
		data[i] = entryToResponse(e)
	}
	return &dto.ListResponse[dto.EntryResponse]{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func entryToResponse(e model.ProductionEntry) dto.EntryResponse {
	return dto.EntryResponse{
		ProductionEntry:  e,
		ResolvedStitches: model.ResolveStitches(e.ActualStitches, e.Overrides),
	}
}
