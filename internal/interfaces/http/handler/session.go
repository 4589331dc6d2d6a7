package handler

import (
	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/gin-gonic/gin"
)

// SessionHandler handles operator login and logout
type SessionHandler struct {
	BaseHandler
	sessions *app.SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions *app.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Login godoc
// @Summary      Log an operator in
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body app.LoginRequest true "Credentials"
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Router       /session/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req app.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	info, err := h.sessions.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}

// Logout godoc
// @Summary      Log the operator out
// @Tags         session
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /session/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())
	h.Success(c, h.sessions.Current())
}

// Current godoc
// @Summary      Get the operator session
// @Tags         session
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /session [get]
func (h *SessionHandler) Current(c *gin.Context) {
	h.Success(c, h.sessions.Current())
}
