package middleware

import (
	"net/http"

	"github.com/erp/labelstation/internal/infrastructure/logger"
	"github.com/erp/labelstation/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// OperatorKey is the gin context key holding the logged in operator
const OperatorKey = "operator"

// SessionState is the operator session the guard consults
type SessionState interface {
	IsActive() bool
	User() string
}

// RequireSession rejects requests with 401 unless an operator is logged in
// and the session token has not expired.
func RequireSession(session SessionState) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !session.IsActive() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithHelp(
				dto.ErrCodeUnauthorized,
				"Please log in before printing tags.",
				GetRequestID(c),
				"POST /api/v1/session/login",
			))
			return
		}

		operator := session.User()
		c.Set(OperatorKey, operator)
		c.Request = c.Request.WithContext(logger.WithOperator(c.Request.Context(), operator))
		c.Next()
	}
}

// GetOperator returns the operator set by RequireSession
func GetOperator(c *gin.Context) string {
	return c.GetString(OperatorKey)
}
