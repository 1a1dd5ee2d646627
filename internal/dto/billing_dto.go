package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type GenerateBillingRequest struct {
	ContractID  string  `json:"contract_id"  validate:"required,uuid"`
	BillingDate string  `json:"billing_date" validate:"required,datetime=2006-01-02"`
	Shift       string  `json:"shift"        validate:"required,oneof=day night"`
	GatePassID  *string `json:"gate_pass_id" validate:"omitempty,uuid"`
}

type CompensateRequest struct {
	ProductionEntryID string `json:"production_entry_id" validate:"required,uuid"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type BillingFilter struct {
	ContractID string `form:"contract_id" validate:"omitempty,uuid"`
	Status     string `form:"status"      validate:"omitempty,oneof=pending approved"`
	Kind       string `form:"kind"        validate:"omitempty,oneof=regular compensating"`
	From       string `form:"from"        validate:"omitempty,datetime=2006-01-02"`
	To         string `form:"to"          validate:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type CorrectionFilter struct {
	ContractID string `form:"contract_id" validate:"required,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type GenerateBillingResponse struct {
	Records     []BillingRecordResponse `json:"records"`
	Count       int                     `json:"count"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
}

type BillingRecordResponse struct {
	ID                string          `json:"id"`
	ContractID        string          `json:"contract_id"`
	MachineID         string          `json:"machine_id"`
	ProductionEntryID string          `json:"production_entry_id"`
	BillingDate       string          `json:"billing_date"`
	Shift             string          `json:"shift"`
	Kind              string          `json:"kind"`
	CompensatesID     *string         `json:"compensates_id"`
	TotalStitches     int64           `json:"total_stitches"`
	BaseRate          decimal.Decimal `json:"base_rate"`
	ElementRates      decimal.Decimal `json:"element_rates"`
	EffectiveRate     decimal.Decimal `json:"effective_rate"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	GatePassID        *string         `json:"gate_pass_id"`
	Status            string          `json:"status"`
	ApprovedBy        *string         `json:"approved_by"`
	ApprovedAt        *string         `json:"approved_at"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         string          `json:"created_at"`
}

// CorrectionResponse describes a billed entry whose resolved stitches no
// longer match what was billed for it.
type CorrectionResponse struct {
	ProductionEntryID string          `json:"production_entry_id"`
	BillingRecordID   string          `json:"billing_record_id"`
	BilledStitches    int64           `json:"billed_stitches"`
	ResolvedStitches  int64           `json:"resolved_stitches"`
	StitchDelta       int64           `json:"stitch_delta"`
	EffectiveRate     decimal.Decimal `json:"effective_rate"`
	AmountDelta       decimal.Decimal `json:"amount_delta"`
}
