package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	baseRateCacheKey = "rates:base:current"
	baseRateCacheTTL = 5 * time.Minute
)

// RateService is the rate catalog: the base per-stitch rate as a history of
// non-overlapping intervals, plus optional rate elements.
type RateService interface {
	CurrentBaseRate(ctx context.Context) (*model.BaseRate, error)
	ListBaseRates(ctx context.Context) ([]model.BaseRate, error)
	SetBaseRate(ctx context.Context, actor string, req dto.SetBaseRateRequest) (*model.BaseRate, error)

	ListActiveElements(ctx context.Context) ([]model.RateElement, error)
	ListElements(ctx context.Context, includeInactive bool) ([]model.RateElement, error)
	GetElement(ctx context.Context, id uuid.UUID) (*model.RateElement, error)
	CreateElement(ctx context.Context, actor string, req dto.CreateRateElementRequest) (*model.RateElement, error)
	// UpdateElementRate changes the live rate. Designs created earlier keep
	// their snapshot.
	UpdateElementRate(ctx context.Context, actor string, id uuid.UUID, rate decimal.Decimal) (*model.RateElement, error)
	DeactivateElement(ctx context.Context, actor string, id uuid.UUID) (*model.RateElement, error)
}

type rateService struct {
	repo  repository.RateRepository
	audit AuditService
	rdb   *redis.Client // optional; nil disables the base-rate cache
}

func NewRateService(repo repository.RateRepository, audit AuditService, rdb *redis.Client) RateService {
	return &rateService{repo: repo, audit: audit, rdb: rdb}
}

func (s *rateService) CurrentBaseRate(ctx context.Context) (*model.BaseRate, error) {
	if cached := s.cachedBaseRate(ctx); cached != nil {
		return cached, nil
	}
	b, err := s.repo.CurrentBaseRate(ctx, nil)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNoActiveRate
		}
		return nil, err
	}
	s.cacheBaseRate(ctx, b)
	return b, nil
}

func (s *rateService) ListBaseRates(ctx context.Context) ([]model.BaseRate, error) {
	return s.repo.ListBaseRates(ctx)
}

// SetBaseRate closes the open interval at effectiveFrom and opens a new one
// in the same transaction, so intervals never overlap or leave a gap.
func (s *rateService) SetBaseRate(ctx context.Context, actor string, req dto.SetBaseRateRequest) (*model.BaseRate, error) {
	if !positiveAt(req.RatePerStitch, rateScale) {
		return nil, ErrInvalidRate
	}
	now := time.Now().UTC()
	effectiveFrom := now
	if req.EffectiveFrom != nil {
		effectiveFrom = req.EffectiveFrom.UTC()
	}
	// The open interval is what billing prices against, so it cannot start
	// in the future.
	if effectiveFrom.After(now) {
		return nil, ErrFutureEffectiveFrom
	}

	var created model.BaseRate
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var previous *model.BaseRate
		current, err := s.repo.LockCurrentBaseRate(ctx, tx)
		switch {
		case err == nil:
			previous = current
		case repository.IsNotFound(err):
		default:
			return err
		}

		if previous != nil {
			if !effectiveFrom.After(previous.EffectiveFrom) {
				return ErrInvalidEffectiveFrom
			}
			if err := s.repo.CloseBaseRate(ctx, tx, previous.ID, effectiveFrom); err != nil {
				if errors.Is(err, repository.ErrNoRowsAffected) {
					return ErrConcurrentUpdate
				}
				return err
			}
		}

		created = model.BaseRate{
			RatePerStitch: req.RatePerStitch,
			EffectiveFrom: effectiveFrom,
			CreatedBy:     actor,
		}
		if err := s.repo.CreateBaseRate(ctx, tx, &created); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrConcurrentUpdate
			}
			return err
		}

		// closing the previous interval is part of the same logical change
		var old interface{}
		if previous != nil {
			closed := *previous
			closed.EffectiveTo = &effectiveFrom
			old = closed
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table:    "base_rates",
			RecordID: created.ID,
			Action:   model.AuditInsert,
			Old:      old,
			New:      created,
			Actor:    actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	s.invalidateBaseRate(ctx)
	log.Info().
		Str("rate", created.RatePerStitch.String()).
		Time("effective_from", created.EffectiveFrom).
		Str("actor", actor).
		Msg("base rate changed")
	return &created, nil
}

func (s *rateService) ListActiveElements(ctx context.Context) ([]model.RateElement, error) {
	return s.repo.ListElements(ctx, false)
}

func (s *rateService) ListElements(ctx context.Context, includeInactive bool) ([]model.RateElement, error) {
	return s.repo.ListElements(ctx, includeInactive)
}

func (s *rateService) GetElement(ctx context.Context, id uuid.UUID) (*model.RateElement, error) {
	e, err := s.repo.FindElementByID(ctx, nil, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRateElementNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *rateService) CreateElement(ctx context.Context, actor string, req dto.CreateRateElementRequest) (*model.RateElement, error) {
	name := strings.TrimSpace(req.Name)
	if !positiveAt(req.RatePerStitch, rateScale) {
		return nil, ErrInvalidRate
	}
	if _, err := s.repo.FindElementByName(ctx, name); err == nil {
		return nil, ErrDuplicateElementName
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	e := model.RateElement{Name: name, RatePerStitch: req.RatePerStitch, Active: true}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateElement(ctx, tx, &e); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicateElementName
			}
			return err
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "rate_elements", RecordID: e.ID, Action: model.AuditInsert, New: e, Actor: actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	return &e, nil
}

func (s *rateService) UpdateElementRate(ctx context.Context, actor string, id uuid.UUID, rate decimal.Decimal) (*model.RateElement, error) {
	if !positiveAt(rate, rateScale) {
		return nil, ErrInvalidRate
	}
	return s.mutateElement(ctx, actor, id, func(e *model.RateElement) { e.RatePerStitch = rate })
}

func (s *rateService) DeactivateElement(ctx context.Context, actor string, id uuid.UUID) (*model.RateElement, error) {
	return s.mutateElement(ctx, actor, id, func(e *model.RateElement) { e.Active = false })
}

func (s *rateService) mutateElement(ctx context.Context, actor string, id uuid.UUID, mutate func(*model.RateElement)) (*model.RateElement, error) {
	var updated model.RateElement
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		e, err := s.repo.FindElementByID(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRateElementNotFound
			}
			return err
		}
		old := *e
		updated = *e
		mutate(&updated)
		if err := s.repo.UpdateElement(ctx, tx, &updated); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			Table: "rate_elements", RecordID: id, Action: model.AuditUpdate, Old: old, New: updated, Actor: actor,
		})
	})
	if txErr != nil {
		return nil, txErr
	}
	return &updated, nil
}

// ── base rate cache ──────────────────────────────────────────────────────────
// Reads only. Billing always loads the rate inside its own transaction.

func (s *rateService) cachedBaseRate(ctx context.Context) *model.BaseRate {
	if s.rdb == nil {
		return nil
	}
	raw, err := s.rdb.Get(ctx, baseRateCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("rate cache: get failed")
		}
		return nil
	}
	var b model.BaseRate
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	return &b
}

func (s *rateService) cacheBaseRate(ctx context.Context, b *model.BaseRate) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, baseRateCacheKey, raw, baseRateCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("rate cache: set failed")
	}
}

func (s *rateService) invalidateBaseRate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, baseRateCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("rate cache: invalidate failed")
	}
}
