package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/erp/labelstation/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"wrapped conflict", fmt.Errorf("start: %w", shared.ErrConflict), http.StatusConflict, dto.ErrCodeConflict},
		{"bin", shared.NewDomainError("INVALID_INVENTORY_BIN", "bad bin"), http.StatusBadRequest, dto.ErrCodeInvalidBin},
		{"upstream", shared.ErrUpstreamFailure, http.StatusBadGateway, dto.ErrCodeUpstream},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			router := newTestRouter()
			router.GET("/test", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, w.Header().Get("X-Request-ID"), resp.Error.RequestID)
		})
	}
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	router := newTestRouter()
	router.GET("/test", func(c *gin.Context) {
		h.HandleError(c, nil)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBaseHandler_InternalErrorHidesDetail(t *testing.T) {
	h := &BaseHandler{}
	router := newTestRouter()
	router.GET("/test", func(c *gin.Context) { h.HandleError(c, errors.New("dial tcp 10.0.0.5:443: refused")) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}
