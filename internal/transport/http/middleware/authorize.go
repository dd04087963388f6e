package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/usecase"
)

// Authorize applies the access policy to every request using the principal
// the authentication stage attached, if any.
func Authorize(policy *usecase.AccessPolicy, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		principal := GetPrincipal(c)

		err := policy.Decide(c.Request.Context(), principal, c.Request.Method, c.Request.URL.Path)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, usecase.ErrAuthenticationRequired):
			abortWithFilterError(c, http.StatusUnauthorized, CodeAuthenticationError,
				"Error de autenticación")
		case errors.Is(err, usecase.ErrAccessDenied):
			abortWithFilterError(c, http.StatusForbidden, CodeAuthorizationError,
				"No tiene los permisos necesarios para esta operación")
		default:
			log.Error("authorization decision failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			abortWithFilterError(c, http.StatusInternalServerError, CodeInternalError,
				"Error interno del servidor")
		}
	}
}
