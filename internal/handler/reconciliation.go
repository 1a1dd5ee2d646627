package handler

import (
	"net/http"

	"stitchbill/internal/dto"
	"stitchbill/internal/service"

	"github.com/gin-gonic/gin"
)

type ReconciliationHandler struct{ svc service.ReconciliationService }

func NewReconciliationHandler(svc service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{svc: svc}
}

// Run godoc
// @Summary      Reconcile approved production against shipments
// @Description  Always returns the computed figures. A record is opened or refreshed only when the discrepancy exceeds tolerance or a pending one exists.
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.ReconcileRequest true "Contract and cut-off date"
// @Success      200  {object} dto.ReconcileResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/reconciliation/run [post]
func (h *ReconciliationHandler) Run(c *gin.Context) {
	var req dto.ReconcileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Reconcile(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resolve godoc
// @Summary      Resolve a pending discrepancy
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string             true "Reconciliation UUID"
// @Param        body body     dto.ResolveRequest true "Resolution notes"
// @Success      200  {object} model.ReconciliationRecord
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/reconciliation/{id}/resolve [post]
func (h *ReconciliationHandler) Resolve(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.ResolveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rec, err := h.svc.Resolve(c.Request.Context(), actor(c), id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Escalate godoc
// @Summary      Escalate a pending discrepancy
// @Tags         reconciliation
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Reconciliation UUID"
// @Success      200 {object} model.ReconciliationRecord
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /v1/reconciliation/{id}/escalate [post]
func (h *ReconciliationHandler) Escalate(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Escalate(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Get godoc
// @Summary      Get a reconciliation record
// @Tags         reconciliation
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Reconciliation UUID"
// @Success      200 {object} model.ReconciliationRecord
// @Failure      404 {object} apierror.APIError
// @Router       /v1/reconciliation/{id} [get]
func (h *ReconciliationHandler) Get(c *gin.Context) {
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
// @Summary      List reconciliation records
// @Tags         reconciliation
// @Produce      json
// @Security     BearerAuth
// @Param        contract_id query string false "Contract UUID"
// @Param        status      query string false "pending | resolved | escalated"
// @Param        from        query string false "YYYY-MM-DD"
// @Param        to          query string false "YYYY-MM-DD"
// @Param        page        query int    false "Page"  default(1)
// @Param        limit       query int    false "Limit" default(50)
// @Success      200 {object} dto.ListResponse[model.ReconciliationRecord]
// @Router       /v1/reconciliation [get]
func (h *ReconciliationHandler) List(c *gin.Context) {
	var f dto.ReconciliationFilter
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
