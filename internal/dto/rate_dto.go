package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SetBaseRateRequest struct {
	RatePerStitch decimal.Decimal `json:"rate_per_stitch" validate:"gt=0"`
	// EffectiveFrom defaults to now when omitted.
	EffectiveFrom *time.Time `json:"effective_from"`
}

type CreateRateElementRequest struct {
	Name          string          `json:"name"            validate:"required,min=2,max=60"`
	RatePerStitch decimal.Decimal `json:"rate_per_stitch" validate:"gt=0"`
}

type UpdateRateElementRequest struct {
	RatePerStitch decimal.Decimal `json:"rate_per_stitch" validate:"gt=0"`
}

type RateElementFilter struct {
	IncludeInactive bool `form:"include_inactive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BaseRateResponse struct {
	ID            string          `json:"id"`
	RatePerStitch decimal.Decimal `json:"rate_per_stitch"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"`
}
