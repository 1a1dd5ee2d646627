package service

import "stitchbill/internal/apierror"

// Domain errors. Handlers map them to HTTP status through apierror.StatusOf;
// callers compare with errors.Is.
var (
	// RateCatalog
	ErrNoActiveRate          = apierror.NotFound("no_active_rate", "no active base rate")
	ErrInvalidRate           = apierror.Validation("invalid_rate", "rate must be greater than zero and fit the stored decimal places")
	ErrInvalidEffectiveFrom  = apierror.Validation("invalid_effective_from", "effective_from must be after the current rate's effective_from")
	ErrFutureEffectiveFrom   = apierror.Validation("future_effective_from", "effective_from must not be in the future")
	ErrRateElementNotFound   = apierror.NotFound("rate_element_not_found", "rate element not found")
	ErrRateElementInactive   = apierror.Validation("rate_element_inactive", "rate element is inactive")
	ErrDuplicateElementName  = apierror.Conflict("duplicate_element_name", "a rate element with this name already exists")
	ErrDuplicateRateElements = apierror.Validation("duplicate_rate_elements", "rate element selected more than once")

	// ContractLedger
	ErrContractNotFound         = apierror.NotFound("contract_not_found", "contract not found")
	ErrDuplicateContractNumber  = apierror.Conflict("duplicate_contract_number", "contract number already exists")
	ErrUnbilledProductionExists = apierror.Consistency("unbilled_production_exists", "contract has unbilled production entries")
	ErrInvalidStatusTransition  = apierror.Conflict("invalid_status_transition", "status transition not allowed")
	ErrContractNotOpen          = apierror.Validation("contract_not_open", "contract does not accept new designs")
	ErrContractNotActive        = apierror.Validation("contract_not_active", "contract is not active")
	ErrInvalidDateRange         = apierror.Validation("invalid_date_range", "end_date must not be before start_date")
	ErrDesignNotFound           = apierror.NotFound("design_not_found", "design not found")
	ErrDesignInactive           = apierror.Validation("design_inactive", "design is inactive")
	ErrDuplicateDesignNumber    = apierror.Conflict("duplicate_design_number", "design number already exists on this contract")

	// Machines
	ErrMachineNotFound      = apierror.NotFound("machine_not_found", "machine not found")
	ErrMachineInactive      = apierror.Validation("machine_inactive", "machine is inactive")
	ErrDuplicateMachineCode = apierror.Conflict("duplicate_machine_code", "machine code already exists")

	// ProductionJournal
	ErrEntryNotFound   = apierror.NotFound("entry_not_found", "production entry not found")
	ErrReasonTooShort  = apierror.Validation("reason_too_short", "reason must be at least 5 characters")
	ErrInvalidStitches = apierror.Validation("invalid_stitches", "stitch count must not be negative")
	ErrInvalidShift    = apierror.Validation("invalid_shift", "shift must be day or night")
	ErrInvalidDate     = apierror.Validation("invalid_date", "date must be YYYY-MM-DD")
	ErrEntryBilled     = apierror.Conflict("entry_billed", "billed production entries cannot be deleted")

	// BillingEngine
	ErrNoEligibleEntries         = apierror.Consistency("no_eligible_entries", "no unbilled production entries for this contract, date and shift")
	ErrAlreadyApproved           = apierror.Conflict("already_approved", "billing record is already approved")
	ErrRecordNotFound            = apierror.NotFound("record_not_found", "record not found")
	ErrConcurrentBillingConflict = apierror.Conflict("concurrent_billing_conflict", "billing for this scope is in progress elsewhere, retry")
	ErrEntryNotBilled            = apierror.Consistency("entry_not_billed", "production entry has not been billed")
	ErrNothingToCompensate       = apierror.Consistency("nothing_to_compensate", "billed stitches already match the resolved count")

	// ReconciliationEngine
	ErrNoValuationRate      = apierror.Validation("no_valuation_rate", "no valuation rate supplied and contract has none")
	ErrReconciliationClosed = apierror.Conflict("reconciliation_closed", "reconciliation for this contract and date is already closed")
	ErrNotesRequired        = apierror.Validation("notes_required", "resolution notes are required")
	ErrShipmentsUnavailable = apierror.Consistency("shipments_unavailable", "gate-pass feed is unavailable")

	// ErrConcurrentUpdate is returned when a guarded write loses a race
	// outside billing generation (rate change, override revision).
	ErrConcurrentUpdate = apierror.Conflict("concurrent_update", "record changed concurrently, retry")
	ErrInvalidID        = apierror.Validation("invalid_id", "id must be a UUID")
)
