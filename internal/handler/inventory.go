package handler

import (
	"net/http"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Ledger godoc
// @Summary      Browse the stock ledger
// @Description  Paginated journal of stock movements, newest first. Entries are immutable; corrections appear as compensating entries.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        product_id     query string false "Filter by product UUID"
// @Param        reference_type query string false "GRN | SALE | RETURN | ADJUSTMENT"
// @Param        page           query int    false "Page (default 1)"
// @Param        limit          query int    false "Rows per page (default 100)"
// @Success      200 {object} dto.LedgerListResponse
// @Router       /v1/inventory/ledger [get]
func (h *InventoryHandler) Ledger(c *gin.Context) {
	var filter dto.LedgerFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Ledger(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StockOnHand godoc
// @Summary      On-hand quantity for a product
// @Description  Returns both the denormalized quantity and the ledger balance; cached reads are flagged.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200 {object} dto.StockOnHandResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/inventory/{id}/on-hand [get]
func (h *InventoryHandler) StockOnHand(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.StockOnHand(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Lots godoc
// @Summary      Lots for a product
// @Description  All lots, including exhausted ones — lots are never deleted.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200 {array} dto.LotResponse
// @Router       /v1/inventory/{id}/lots [get]
func (h *InventoryHandler) Lots(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Lots(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Valuation godoc
// @Summary      Value the on-hand stock of a product
// @Description  Prices the on-hand quantity under the product's cost method without mutating lots.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200 {object} dto.ValuationResponse
// @Router       /v1/inventory/{id}/valuation [get]
func (h *InventoryHandler) Valuation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Valuation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdjustStock godoc
// @Summary      Manual stock adjustment
// @Description  Applies a signed correction through the ledger: positive deltas create a lot at the running average, negative deltas consume under the product's policy.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "Product UUID"
// @Param        body body dto.AdjustStockRequest true "Delta and reason"
// @Success      200  {object} dto.StockOnHandResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/inventory/{id}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
