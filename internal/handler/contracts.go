package handler

import (
	"context"
	"net/http"

	"stitchbill/internal/dto"
	"stitchbill/internal/model"
	"stitchbill/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ContractsHandler struct{ svc service.ContractService }

func NewContractsHandler(svc service.ContractService) *ContractsHandler {
	return &ContractsHandler{svc: svc}
}

// Create godoc
// @Summary      Create a contract
// @Description  Contracts start in draft. The number is drawn from a sequence unless supplied.
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateContractRequest true "Contract"
// @Success      201  {object} model.Contract
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/contract [post]
func (h *ContractsHandler) Create(c *gin.Context) {
	var req dto.CreateContractRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ct, err := h.svc.CreateContract(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ct)
}

// List godoc
// @Summary      List contracts
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Param        status     query string false "draft | active | completed | cancelled"
// @Param        party_name query string false "Party name (substring)"
// @Param        from       query string false "Start date from (YYYY-MM-DD)"
// @Param        to         query string false "Start date to (YYYY-MM-DD)"
// @Param        page       query int    false "Page"  default(1)
// @Param        limit      query int    false "Limit" default(50)
// @Success      200 {object} dto.ListResponse[model.Contract]
// @Router       /v1/contract [get]
func (h *ContractsHandler) List(c *gin.Context) {
	var f dto.ContractFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.svc.ListContracts(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary      Get a contract with its designs
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Contract UUID"
// @Success      200 {object} model.Contract
// @Failure      404 {object} apierror.APIError
// @Router       /v1/contract/{id} [get]
func (h *ContractsHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ct, err := h.svc.GetContract(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// AddDesign godoc
// @Summary      Add a design to a contract
// @Description  Selected rate elements are snapshotted at their current rates.
// @Tags         contracts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                  true "Contract UUID"
// @Param        body body     dto.CreateDesignRequest true "Design"
// @Success      201  {object} model.Design
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/contract/{id}/items [post]
func (h *ContractsHandler) AddDesign(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.CreateDesignRequest
	if !bindAndValidate(c, &req) {
		return
	}
	d, err := h.svc.CreateDesign(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Activate godoc
// @Summary      Activate a draft contract
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Contract UUID"
// @Success      200 {object} model.Contract
// @Failure      409 {object} apierror.APIError
// @Router       /v1/contract/{id}/activate [post]
func (h *ContractsHandler) Activate(c *gin.Context) {
	h.transition(c, h.svc.ActivateContract)
}

// Complete godoc
// @Summary      Complete an active contract
// @Description  Refused while unbilled production entries remain.
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Contract UUID"
// @Success      200 {object} model.Contract
// @Failure      409 {object} apierror.APIError
// @Router       /v1/contract/{id}/complete [post]
func (h *ContractsHandler) Complete(c *gin.Context) {
	h.transition(c, h.svc.CompleteContract)
}

// Cancel godoc
// @Summary      Cancel a draft or active contract
// @Tags         contracts
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "Contract UUID"
// @Success      200 {object} model.Contract
// @Failure      409 {object} apierror.APIError
// @Router       /v1/contract/{id}/cancel [post]
func (h *ContractsHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.CancelContract)
}

type contractTransition func(ctx context.Context, actor string, id uuid.UUID) (*model.Contract, error)

func (h *ContractsHandler) transition(c *gin.Context, fn contractTransition) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ct, err := fn(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}
