package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foroescolar/escuela-api/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID.
	TraceIDKey = "trace_id"
	// PrincipalKey is the context key for the authenticated principal.
	PrincipalKey = "principal"
	// RawTokenKey is the context key for the bearer token as presented.
	RawTokenKey = "raw_token"
)

// EnrichContext adds a trace ID to each request.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetPrincipal retrieves the authenticated principal, nil when the request
// is anonymous.
func GetPrincipal(c *gin.Context) *domain.Principal {
	if val, exists := c.Get(PrincipalKey); exists {
		if principal, ok := val.(*domain.Principal); ok {
			return principal
		}
	}
	return nil
}

// GetRawToken retrieves the bearer token presented on the request, empty
// when none was sent.
func GetRawToken(c *gin.Context) string {
	if val, exists := c.Get(RawTokenKey); exists {
		if token, ok := val.(string); ok {
			return token
		}
	}
	return ""
}
