package dto

import (
	"stitchbill/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ReconcileRequest struct {
	ContractID string `json:"contract_id" validate:"required,uuid"`
	AsOfDate   string `json:"as_of_date"  validate:"required,datetime=2006-01-02"`
	// ValuationRate overrides the contract's valuation rate for this run.
	ValuationRate *decimal.Decimal `json:"valuation_rate"`
}

type ResolveRequest struct {
	Notes string `json:"notes" validate:"required,min=3,max=2000"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ReconciliationFilter struct {
	ContractID string `form:"contract_id" validate:"omitempty,uuid"`
	Status     string `form:"status"      validate:"omitempty,oneof=pending resolved escalated"`
	From       string `form:"from"        validate:"omitempty,datetime=2006-01-02"`
	To         string `form:"to"          validate:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// ReconcileResponse always carries the computed figures; Record is nil when
// the discrepancy was within tolerance and no pending record existed.
type ReconcileResponse struct {
	ContractID           string                      `json:"contract_id"`
	AsOfDate             string                      `json:"as_of_date"`
	TotalProductionValue decimal.Decimal             `json:"total_production_value"`
	TotalShippedValue    decimal.Decimal             `json:"total_shipped_value"`
	DiscrepancyAmount    decimal.Decimal             `json:"discrepancy_amount"`
	Tolerance            decimal.Decimal             `json:"tolerance"`
	WithinTolerance      bool                        `json:"within_tolerance"`
	Record               *model.ReconciliationRecord `json:"record"`
}
