package handler

import (
	"net/http"

	"posgrocery/internal/dto"
	"posgrocery/internal/service"

	"github.com/gin-gonic/gin"
)

type PoliciesHandler struct{ svc service.CostPolicyService }

func NewPoliciesHandler(svc service.CostPolicyService) *PoliciesHandler {
	return &PoliciesHandler{svc: svc}
}

// Get godoc
// @Summary      Cost policy of a product
// @Description  Returns the product's valuation method; defaulted=true when no explicit policy row exists.
// @Tags         policies
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200 {object} dto.CostPolicyResponse
// @Router       /v1/products/{id}/cost-policy [get]
func (h *PoliciesHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Set godoc
// @Summary      Set the cost policy of a product
// @Description  Pins FIFO, LIFO or AVERAGE for a product. Takes effect on the next consumption; realized costs already written are untouched.
// @Tags         policies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "Product UUID"
// @Param        body body dto.SetCostPolicyRequest true "Method"
// @Success      200  {object} dto.CostPolicyResponse
// @Router       /v1/products/{id}/cost-policy [put]
func (h *PoliciesHandler) Set(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.SetCostPolicyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Set(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
