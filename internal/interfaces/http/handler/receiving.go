package handler

import (
	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/gin-gonic/gin"
)

// ReceivingHandler lists what can be labelled: purchase orders, their line
// items and the warehouses they are received into
type ReceivingHandler struct {
	BaseHandler
	receiving *app.ReceivingService
}

// NewReceivingHandler creates a new ReceivingHandler
func NewReceivingHandler(receiving *app.ReceivingService) *ReceivingHandler {
	return &ReceivingHandler{receiving: receiving}
}

// ListPurchaseOrders godoc
// @Summary      List purchase order numbers
// @Tags         receiving
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Router       /purchase-orders [get]
func (h *ReceivingHandler) ListPurchaseOrders(c *gin.Context) {
	orders, err := h.receiving.ListPurchaseOrders(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// ListLineItems godoc
// @Summary      List the line items of a purchase order
// @Tags         receiving
// @Produce      json
// @Param        po           path  string true "Purchase order number"
// @Param        warehouse_id query string true "Warehouse ID"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /purchase-orders/{po}/items [get]
func (h *ReceivingHandler) ListLineItems(c *gin.Context) {
	items, err := h.receiving.ListLineItems(c.Request.Context(), c.Query("warehouse_id"), c.Param("po"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// ListWarehouses godoc
// @Summary      List warehouses
// @Tags         receiving
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /warehouses [get]
func (h *ReceivingHandler) ListWarehouses(c *gin.Context) {
	warehouses, err := h.receiving.ListWarehouses(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, warehouses)
}
