package handler

import (
	"net/http"

	"stitchbill/internal/dto"
	"stitchbill/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BillingHandler struct{ svc service.BillingService }

func NewBillingHandler(svc service.BillingService) *BillingHandler { return &BillingHandler{svc: svc} }

// Generate godoc
// @Summary      Bill a contract/date/shift
// @Description  Prices every unbilled entry in scope, one pending record per entry. A concurrent run for the same scope gets 409.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.GenerateBillingRequest true "Billing scope"
// @Success      201  {object} dto.GenerateBillingResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/billing/generate [post]
func (h *BillingHandler) Generate(c *gin.Context) {
	var req dto.GenerateBillingRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.GenerateBilling(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Approve godoc
// @Summary      Approve a pending billing record
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Billing record UUID"
// @Success      200 {object} dto.BillingRecordResponse
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /v1/billing/{id}/approve [post]
func (h *BillingHandler) Approve(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Approve(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Corrections godoc
// @Summary      Billed entries whose stitch count changed after billing
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        contract_id query string true "Contract UUID"
// @Success      200 {array}  dto.CorrectionResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/billing/corrections [get]
func (h *BillingHandler) Corrections(c *gin.Context) {
	var f dto.CorrectionFilter
	if !bindQuery(c, &f) {
		return
	}
	contractID, _ := uuid.Parse(f.ContractID)
	out, err := h.svc.ListCorrections(c.Request.Context(), contractID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Compensate godoc
// @Summary      Issue a compensating record for a corrected entry
// @Description  Prices the stitch delta at the rate the entry was originally billed at.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CompensateRequest true "Entry"
// @Success      201  {object} dto.BillingRecordResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/billing/compensate [post]
func (h *BillingHandler) Compensate(c *gin.Context) {
	var req dto.CompensateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	entryID, _ := uuid.Parse(req.ProductionEntryID)
	rec, err := h.svc.Compensate(c.Request.Context(), actor(c), entryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Get godoc
// @Summary      Get a billing record
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Billing record UUID"
// @Success      200 {object} dto.BillingRecordResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/billing/{id} [get]
func (h *BillingHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	rec, err := h.svc.GetRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// List godoc
// @Summary      List billing records
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        contract_id query string false "Contract UUID"
// @Param        status      query string false "pending | approved"
// @Param        kind        query string false "regular | compensating"
// @Param        from        query string false "YYYY-MM-DD"
// @Param        to          query string false "YYYY-MM-DD"
// @Param        page        query int    false "Page"  default(1)
// @Param        limit       query int    false "Limit" default(50)
// @Success      200 {object} dto.ListResponse[dto.BillingRecordResponse]
// @Router       /v1/billing [get]
func (h *BillingHandler) List(c *gin.Context) {
	var f dto.BillingFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.svc.ListRecords(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
