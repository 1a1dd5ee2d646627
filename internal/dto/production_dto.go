package dto

import "stitchbill/internal/model"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RecordEntryRequest struct {
	MachineID        string `json:"machine_id"        validate:"required,uuid"`
	DesignID         string `json:"design_id"         validate:"required,uuid"`
	ProductionDate   string `json:"production_date"   validate:"required,datetime=2006-01-02"`
	Shift            string `json:"shift"             validate:"required,oneof=day night"`
	ActualStitches   *int64 `json:"actual_stitches"   validate:"required,min=0"`
	GenuineStitches  *int64 `json:"genuine_stitches"  validate:"omitempty,min=0"`
	RepeatsCompleted int    `json:"repeats_completed" validate:"min=0"`
	OperatorName     string `json:"operator_name"     validate:"max=120"`
}

type RecordBulkRequest struct {
	Entries []RecordEntryRequest `json:"entries" validate:"required,min=1,max=500,dive"`
}

type OverrideStitchesRequest struct {
	ProductionEntryID string `json:"production_entry_id" validate:"required,uuid"`
	NewStitches       *int64 `json:"new_stitches"        validate:"required,min=0"`
	// reason length is checked after trimming in the service
	Reason string `json:"reason" validate:"required"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type EntryFilter struct {
	ContractID string `form:"contract_id" validate:"omitempty,uuid"`
	MachineID  string `form:"machine_id"  validate:"omitempty,uuid"`
	Shift      string `form:"shift"       validate:"omitempty,oneof=day night"`
	Billed     string `form:"billed"      validate:"omitempty,oneof=true false"`
	From       string `form:"from"        validate:"omitempty,datetime=2006-01-02"`
	To         string `form:"to"          validate:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type EntryResponse struct {
	model.ProductionEntry
	ResolvedStitches int64 `json:"resolved_stitches"`
}

type ResolvedStitchesResponse struct {
	ProductionEntryID string `json:"production_entry_id"`
	ActualStitches    int64  `json:"actual_stitches"`
	ResolvedStitches  int64  `json:"resolved_stitches"`
	Revisions         int    `json:"revisions"`
}
