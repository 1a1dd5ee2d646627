package handler

import (
	"net/http"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/service"

	"github.com/gin-gonic/gin"
)

type RatesHandler struct{ svc service.RateService }

func NewRatesHandler(svc service.RateService) *RatesHandler { return &RatesHandler{svc: svc} }

// CurrentBaseRate godoc
// @Summary      Current base rate per stitch
// @Tags         rates
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.BaseRateResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/rates/base [get]
func (h *RatesHandler) CurrentBaseRate(c *gin.Context) {
	b, err := h.svc.CurrentBaseRate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, baseRateResponse(*b))
}

// BaseRateHistory godoc
// @Summary      Base rate history, newest first
// @Tags         rates
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.BaseRateResponse
// @Router       /v1/rates/base/history [get]
func (h *RatesHandler) BaseRateHistory(c *gin.Context) {
	list, err := h.svc.ListBaseRates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.BaseRateResponse, 0, len(list))
	for _, b := range list {
		out = append(out, baseRateResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

// SetBaseRate godoc
// @Summary      Set a new base rate
// @Description  Closes the current rate interval and opens a new one at effective_from.
// @Tags         rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.SetBaseRateRequest true "New rate"
// @Success      201  {object} dto.BaseRateResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/rates/base [post]
func (h *RatesHandler) SetBaseRate(c *gin.Context) {
	var req dto.SetBaseRateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	b, err := h.svc.SetBaseRate(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, baseRateResponse(*b))
}

// ListElements godoc
// @Summary      List rate elements
// @Tags         rates
// @Produce      json
// @Security     BearerAuth
// @Param        include_inactive query bool false "Include inactive elements"
// @Success      200 {array} model.RateElement
// @Router       /v1/rates/elements [get]
func (h *RatesHandler) ListElements(c *gin.Context) {
	var f dto.RateElementFilter
	if !bindQuery(c, &f) {
		return
	}
	list, err := h.svc.ListElements(c.Request.Context(), f.IncludeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateElement godoc
// @Summary      Create a rate element
// @Tags         rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateRateElementRequest true "Element"
// @Success      201  {object} model.RateElement
// @Failure      409  {object} apierror.APIError
// @Router       /v1/rates/elements [post]
func (h *RatesHandler) CreateElement(c *gin.Context) {
	var req dto.CreateRateElementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	e, err := h.svc.CreateElement(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// UpdateElement godoc
// @Summary      Change a rate element's live rate
// @Description  Designs created earlier keep the rate they snapshotted.
// @Tags         rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                       true "Element UUID"
// @Param        body body     dto.UpdateRateElementRequest true "New rate"
// @Success      200  {object} model.RateElement
// @Failure      404  {object} apierror.APIError
// @Router       /v1/rates/elements/{id} [put]
func (h *RatesHandler) UpdateElement(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.UpdateRateElementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	e, err := h.svc.UpdateElementRate(c.Request.Context(), actor(c), id, req.RatePerStitch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// DeactivateElement godoc
// @Summary      Deactivate a rate element
// @Tags         rates
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Element UUID"
// @Success      200 {object} model.RateElement
// @Failure      404 {object} apierror.APIError
// @Router       /v1/rates/elements/{id} [delete]
func (h *RatesHandler) DeactivateElement(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	e, err := h.svc.DeactivateElement(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func baseRateResponse(b model.BaseRate) dto.BaseRateResponse {
	return dto.BaseRateResponse{
		ID:            b.ID.String(),
		RatePerStitch: b.RatePerStitch,
		EffectiveFrom: b.EffectiveFrom,
		EffectiveTo:   b.EffectiveTo,
	}
}
