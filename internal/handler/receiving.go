package handler

import (
	"net/http"
	"strconv"

	"posgrocery/internal/dto"
	"posgrocery/internal/service"

	"github.com/gin-gonic/gin"
)

type ReceivingHandler struct{ svc service.ReceivingService }

func NewReceivingHandler(svc service.ReceivingService) *ReceivingHandler {
	return &ReceivingHandler{svc: svc}
}

// CreateGRN godoc
// @Summary      Create a draft GRN
// @Description  Records a goods received note in DRAFT. No stock moves until finalization.
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateGRNRequest true "GRN lines"
// @Success      201  {object} dto.GRNResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/grns [post]
func (h *ReceivingHandler) CreateGRN(c *gin.Context) {
	var req dto.CreateGRNRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateGRN(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// FinalizeGRN godoc
// @Summary      Finalize a GRN
// @Description  Allocates freight/duty/misc across lines (exact to the cent), creates stock lots and ledger entries, and updates running averages. Allowed exactly once per GRN.
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "GRN UUID"
// @Param        body body dto.FinalizeGRNRequest true "Extra costs and allocation mode"
// @Success      200  {object} dto.FinalizeGRNResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/grns/{id}/finalize [post]
func (h *ReceivingHandler) FinalizeGRN(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.FinalizeGRNRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.FinalizeGRN(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetGRN godoc
// @Summary      Get a GRN
// @Tags         receiving
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "GRN UUID"
// @Success      200 {object} dto.GRNResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/grns/{id} [get]
func (h *ReceivingHandler) GetGRN(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetGRN(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListGRNs godoc
// @Summary      List GRNs
// @Tags         receiving
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page (default 1)"
// @Param        limit query int false "Rows per page (default 50)"
// @Success      200 {object} map[string]interface{}
// @Router       /v1/grns [get]
func (h *ReceivingHandler) ListGRNs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	grns, total, err := h.svc.ListGRNs(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": grns, "total": total, "page": page, "limit": limit})
}
