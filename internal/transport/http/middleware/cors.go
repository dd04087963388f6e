package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET,POST,PUT,DELETE,OPTIONS,PATCH"
	corsHeaders = "Origin,X-Requested-With,Authorization,Content-Type,Accept"
	corsMaxAge  = "3600"
)

// CORS enforces an explicit origin allowlist. Responses carry credentials,
// so the matched origin is echoed back verbatim; a wildcard entry is never
// emitted. Requests from origins outside the list get no CORS headers at
// all, which makes the browser reject the response.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = normalizeOrigin(origin)
		if origin == "" {
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Caches must not serve one origin's response to another.
		c.Header("Vary", "Origin")

		if origin != "" {
			if _, ok := allowed[normalizeOrigin(origin)]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", corsMethods)
			c.Header("Access-Control-Allow-Headers", corsHeaders)
			c.Header("Access-Control-Max-Age", corsMaxAge)

			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// normalizeOrigin strips the trailing slash some deployments configure so
// "https://example.com/" and "https://example.com" compare equal.
func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}
