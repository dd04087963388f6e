package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foroescolar/escuela-api/internal/usecase"
)

// BlacklistGuard rejects tokens revoked since authentication. It checks the
// local set only; the durable store was already consulted during
// verification and the janitor keeps the set converged.
func BlacklistGuard(blacklist *usecase.Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := GetRawToken(c)
		if token == "" {
			c.Next()
			return
		}

		if blacklist.ContainsLocal(token) {
			abortWithFilterError(c, http.StatusUnauthorized, CodeTokenInvalidated,
				"Su sesión ha sido invalidada")
			return
		}

		c.Next()
	}
}
