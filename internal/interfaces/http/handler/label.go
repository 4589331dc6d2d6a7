package handler

import (
	"net/http"
	"strconv"

	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/gin-gonic/gin"
)

// LabelHandler serves label previews and the station's form defaults
type LabelHandler struct {
	BaseHandler
	preview *app.PreviewService
	batches *app.BatchService
}

// NewLabelHandler creates a new LabelHandler
func NewLabelHandler(preview *app.PreviewService, batches *app.BatchService) *LabelHandler {
	return &LabelHandler{preview: preview, batches: batches}
}

// Preview godoc
// @Summary      Render a label preview
// @Description  Returns the label as PNG, or the printer document with ?format=zpl
// @Tags         labels
// @Accept       json
// @Produce      png
// @Param        request body app.PreviewRequest true "Label fields"
// @Param        format  query string false "png (default) or zpl"
// @Success      200
// @Failure      400 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Router       /labels/preview [post]
func (h *LabelHandler) Preview(c *gin.Context) {
	var req app.PreviewRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if c.Query("format") == "zpl" {
		document, err := h.preview.Document(req)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(document))
		return
	}

	img, err := h.preview.Render(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("X-Label-Width", strconv.Itoa(img.Width))
	c.Header("X-Label-Height", strconv.Itoa(img.Height))
	c.Data(http.StatusOK, "image/png", img.PNG)
}

// Defaults godoc
// @Summary      Get the values pre-filled for the next batch
// @Tags         labels
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /labels/defaults [get]
func (h *LabelHandler) Defaults(c *gin.Context) {
	h.Success(c, h.batches.Defaults())
}

// PrinterStatus godoc
// @Summary      Get the selected printer's status
// @Tags         printer
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /printer/status [get]
func (h *LabelHandler) PrinterStatus(c *gin.Context) {
	status, err := h.batches.PrinterStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}
