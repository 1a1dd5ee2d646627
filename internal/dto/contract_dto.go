package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateContractRequest struct {
	// ContractNumber is only honoured for admin imports; normally the number
	// is drawn from contract_number_seq.
	ContractNumber *string          `json:"contract_number" validate:"omitempty,min=3,max=40"`
	PartyName      string           `json:"party_name"      validate:"required,min=2,max=120"`
	PONumber       string           `json:"po_number"       validate:"max=60"`
	StartDate      string           `json:"start_date"      validate:"required,datetime=2006-01-02"`
	EndDate        *string          `json:"end_date"        validate:"omitempty,datetime=2006-01-02"`
	ValuationRate  *decimal.Decimal `json:"valuation_rate"`
}

type CreateDesignRequest struct {
	DesignNumber    string   `json:"design_number"    validate:"required,max=60"`
	Description     string   `json:"description"      validate:"max=500"`
	PlannedQuantity int      `json:"planned_quantity" validate:"min=0"`
	PlannedStitches int64    `json:"planned_stitches" validate:"min=0"`
	RateElementIDs  []string `json:"rate_element_ids" validate:"omitempty,dive,uuid"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ContractFilter struct {
	Status    string `form:"status"     validate:"omitempty,oneof=draft active completed cancelled"`
	PartyName string `form:"party_name"`
	From      string `form:"from"       validate:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         validate:"omitempty,datetime=2006-01-02"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ListResponse is the paging envelope shared by every list endpoint.
type ListResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}
