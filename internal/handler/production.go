package handler

import (
	"net/http"

	"stitchbill/internal/dto"
	"stitchbill/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProductionHandler struct{ svc service.ProductionService }

func NewProductionHandler(svc service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// RecordEntry godoc
// @Summary      Record one machine/shift production entry
// @Tags         production
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.RecordEntryRequest true "Entry"
// @Success      201  {object} model.ProductionEntry
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/production/entry [post]
func (h *ProductionHandler) RecordEntry(c *gin.Context) {
	var req dto.RecordEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	e, err := h.svc.RecordEntry(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// RecordBulk godoc
// @Summary      Record a batch of entries
// @Description  All or nothing: one invalid row persists nothing.
// @Tags         production
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.RecordBulkRequest true "Entries"
// @Success      201  {array}  model.ProductionEntry
// @Failure      422  {object} apierror.APIError
// @Router       /v1/production/bulk [post]
func (h *ProductionHandler) RecordBulk(c *gin.Context) {
	var req dto.RecordBulkRequest
	if !bindAndValidate(c, &req) {
		return
	}
	out, err := h.svc.RecordBulk(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// Override godoc
// @Summary      Override an entry's stitch count
// @Description  Appends a new revision; the recorded count is never rewritten.
// @Tags         production
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.OverrideStitchesRequest true "Override"
// @Success      201  {object} model.StitchOverride
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/production/override [post]
func (h *ProductionHandler) Override(c *gin.Context) {
	var req dto.OverrideStitchesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	entryID, _ := uuid.Parse(req.ProductionEntryID)
	o, err := h.svc.OverrideStitches(c.Request.Context(), actor(c), entryID, *req.NewStitches, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// ListEntries godoc
// @Summary      List production entries
// @Tags         production
// @Produce      json
// @Security     BearerAuth
// @Param        contract_id query string false "Contract UUID"
// @Param        machine_id  query string false "Machine UUID"
// @Param        shift       query string false "day | night"
// @Param        billed      query string false "true | false"
// @Param        from        query string false "YYYY-MM-DD"
// @Param        to          query string false "YYYY-MM-DD"
// @Param        page        query int    false "Page"  default(1)
// @Param        limit       query int    false "Limit" default(50)
// @Success      200 {object} dto.ListResponse[dto.EntryResponse]
// @Router       /v1/production/entries [get]
func (h *ProductionHandler) ListEntries(c *gin.Context) {
	var f dto.EntryFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.svc.ListEntries(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetEntry godoc
// @Summary      Get a production entry
// @Tags         production
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Entry UUID"
// @Success      200 {object} dto.EntryResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/production/entries/{id} [get]
func (h *ProductionHandler) GetEntry(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	e, err := h.svc.GetEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Resolved godoc
// @Summary      Resolved stitch count of an entry
// @Tags         production
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Entry UUID"
// @Success      200 {object} dto.ResolvedStitchesResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/production/entries/{id}/resolved [get]
func (h *ProductionHandler) Resolved(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	e, err := h.svc.GetEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ResolvedStitchesResponse{
		ProductionEntryID: e.ID.String(),
		ActualStitches:    e.ActualStitches,
		ResolvedStitches:  e.ResolvedStitches,
		Revisions:         len(e.Overrides),
	})
}

// DeleteEntry godoc
// @Summary      Delete an unbilled production entry
// @Tags         production
// @Security     BearerAuth
// @Param        id  path string true "Entry UUID"
// @Success      204
// @Failure      409 {object} apierror.APIError
// @Router       /v1/production/entries/{id} [delete]
func (h *ProductionHandler) DeleteEntry(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteEntry(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
