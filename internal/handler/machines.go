package handler

import (
	"net/http"

	"stitchbill/internal/dto"
	"stitchbill/internal/service"

	"github.com/gin-gonic/gin"
)

type MachinesHandler struct{ svc service.MachineService }

func NewMachinesHandler(svc service.MachineService) *MachinesHandler {
	return &MachinesHandler{svc: svc}
}

// Create godoc
// @Summary      Register a machine
// @Tags         machines
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateMachineRequest true "Machine"
// @Success      201  {object} model.Machine
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/machines [post]
func (h *MachinesHandler) Create(c *gin.Context) {
	var req dto.CreateMachineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	m, err := h.svc.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// List godoc
// @Summary      List machines
// @Tags         machines
// @Produce      json
// @Security     BearerAuth
// @Param        include_inactive query bool false "Include inactive machines"
// @Success      200 {array} model.Machine
// @Router       /v1/machines [get]
func (h *MachinesHandler) List(c *gin.Context) {
	var f dto.MachineFilter
	if !bindQuery(c, &f) {
		return
	}
	list, err := h.svc.List(c.Request.Context(), f.IncludeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get godoc
// @Summary      Get a machine
// @Tags         machines
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Machine UUID"
// @Success      200 {object} model.Machine
// @Failure      404 {object} apierror.APIError
// @Router       /v1/machines/{id} [get]
func (h *MachinesHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	m, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
