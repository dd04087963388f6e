package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// FilterError is the error payload every security middleware emits.
type FilterError struct {
	Status    int               `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// Error codes shared by the security middlewares.
const (
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenInvalidated    = "TOKEN_INVALIDATED"
	CodeAuthenticationError = "AUTHENTICATION_ERROR"
	CodeAuthorizationError  = "AUTHORIZATION_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// abortWithFilterError short-circuits the request with a structured payload.
func abortWithFilterError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, FilterError{
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Details: map[string]string{
			"path":     c.Request.URL.Path,
			"trace_id": GetTraceID(c),
		},
	})
}
