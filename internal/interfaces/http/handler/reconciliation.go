package handler

import (
	"errors"
	"net/http"

	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/erp/labelstation/internal/interfaces/http/dto"
	"github.com/erp/labelstation/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ReconciliationHandler exposes printed tags the inventory backend never
// confirmed, and lets the operator send them again
type ReconciliationHandler struct {
	BaseHandler
	journal *app.ReconciliationService
	notices *app.NoticeBoard
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(journal *app.ReconciliationService, notices *app.NoticeBoard) *ReconciliationHandler {
	return &ReconciliationHandler{journal: journal, notices: notices}
}

// List godoc
// @Summary      List unresolved journal entries
// @Tags         reconciliation
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /reconciliation [get]
func (h *ReconciliationHandler) List(c *gin.Context) {
	entries, err := h.journal.ListUnresolved(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Retry godoc
// @Summary      Send a journaled stock record again
// @Description  A failed retry answers 502 and still carries the updated entry
// @Tags         reconciliation
// @Produce      json
// @Param        id path string true "Entry ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Router       /reconciliation/{id}/retry [post]
func (h *ReconciliationHandler) Retry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	entry, err := h.journal.Retry(c.Request.Context(), id)
	if err == nil {
		h.Success(c, entry)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == shared.ErrUpstreamFailure.Code {
		_ = c.Error(err)
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeUpstream, domainErr.Message, middleware.GetRequestID(c))
		resp.Data = entry
		c.JSON(http.StatusBadGateway, resp)
		return
	}
	h.HandleError(c, err)
}

// Notices godoc
// @Summary      List recent operator notices, newest first
// @Tags         notices
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /notices [get]
func (h *ReconciliationHandler) Notices(c *gin.Context) {
	h.Success(c, h.notices.List())
}
