package handler

import (
	"net/http"

	"stitchbill/internal/dto"
	"stitchbill/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct{ svc service.AuditService }

func NewAuditHandler(svc service.AuditService) *AuditHandler { return &AuditHandler{svc: svc} }

// List godoc
// @Summary      Query the audit log
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        table_name query string false "Table"
// @Param        record_id  query string false "Record UUID"
// @Param        actor      query string false "Actor"
// @Param        page       query int    false "Page"  default(1)
// @Param        limit      query int    false "Limit" default(100)
// @Success      200 {object} dto.ListResponse[model.AuditLog]
// @Router       /v1/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var f dto.AuditFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
