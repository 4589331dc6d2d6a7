package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/labelstation/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubSession struct {
	active bool
	user   string
}

func (s *stubSession) IsActive() bool { return s.active }
func (s *stubSession) User() string   { return s.user }

func TestRequireSession(t *testing.T) {
	t.Run("rejects without session", func(t *testing.T) {
		called := false
		router := gin.New()
		router.Use(RequestID())
		router.Use(RequireSession(&stubSession{}))
		router.POST("/api/v1/batches", func(c *gin.Context) {
			called = true
			c.Status(http.StatusAccepted)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/batches", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, called)
		assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
		assert.Contains(t, w.Body.String(), "POST /api/v1/session/login")
	})

	t.Run("expired token counts as logged out", func(t *testing.T) {
		router := gin.New()
		router.Use(RequireSession(&stubSession{active: false, user: "receiver01"}))
		router.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("sets operator", func(t *testing.T) {
		var ginOperator, ctxOperator string
		router := gin.New()
		router.Use(RequireSession(&stubSession{active: true, user: "receiver01"}))
		router.GET("/test", func(c *gin.Context) {
			ginOperator = GetOperator(c)
			ctxOperator = logger.GetOperator(c.Request.Context())
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "receiver01", ginOperator)
		assert.Equal(t, "receiver01", ctxOperator)
	})
}
