package handler

import (
	"net/http"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/service"
	"posgrocery/internal/worker"

	"github.com/gin-gonic/gin"
)

type SnapshotsHandler struct {
	svc        service.SnapshotService
	dispatcher *worker.Dispatcher
}

func NewSnapshotsHandler(svc service.SnapshotService, dispatcher *worker.Dispatcher) *SnapshotsHandler {
	return &SnapshotsHandler{svc: svc, dispatcher: dispatcher}
}

// Run godoc
// @Summary      Run a snapshot synchronously
// @Description  Materializes per-product quantity and value rows for the given date (default: today). Idempotent: re-running a date upserts the same rows.
// @Tags         snapshots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateSnapshotRequest false "Date (default: today)"
// @Success      200  {object} dto.SnapshotRunResponse
// @Router       /v1/snapshots/run [post]
func (h *SnapshotsHandler) Run(c *gin.Context) {
	var req dto.CreateSnapshotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Run(c.Request.Context(), req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Enqueue godoc
// @Summary      Enqueue a snapshot run
// @Description  Dispatches the snapshot to the background worker pool instead of running it inline.
// @Tags         snapshots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateSnapshotRequest false "Date (default: today)"
// @Success      202
// @Router       /v1/snapshots/enqueue [post]
func (h *SnapshotsHandler) Enqueue(c *gin.Context) {
	var req dto.CreateSnapshotRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.dispatcher.EnqueueSnapshot(c.Request.Context(), req.Date); err != nil {
		respondError(c, apierror.Internal(err))
		return
	}
	c.Status(http.StatusAccepted)
}

// ByDate godoc
// @Summary      Snapshot rows for a date
// @Tags         snapshots
// @Produce      json
// @Security     BearerAuth
// @Param        date path string true "Date YYYY-MM-DD"
// @Success      200 {array} dto.SnapshotRowResponse
// @Router       /v1/snapshots/{date} [get]
func (h *SnapshotsHandler) ByDate(c *gin.Context) {
	resp, err := h.svc.ByDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Trend godoc
// @Summary      Valuation trend for a product
// @Description  Snapshot rows for one product across a date range, oldest first.
// @Tags         snapshots
// @Produce      json
// @Security     BearerAuth
// @Param        product_id query string true "Product UUID"
// @Param        from       query string true "From date YYYY-MM-DD"
// @Param        to         query string true "To date YYYY-MM-DD"
// @Success      200 {array} dto.SnapshotRowResponse
// @Router       /v1/snapshots/trend [get]
func (h *SnapshotsHandler) Trend(c *gin.Context) {
	var filter dto.SnapshotTrendFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if err := validate.Struct(&filter); err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.New("product_id, from and to are required"))
		return
	}
	resp, err := h.svc.Trend(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
