package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/domain"
	"github.com/foroescolar/escuela-api/internal/core/port"
	"github.com/foroescolar/escuela-api/internal/infra/logger"
	"github.com/foroescolar/escuela-api/internal/usecase"
)

const bearerPrefix = "Bearer "

// ExtractBearerToken pulls the token out of the Authorization header. The
// prefix match is strict: anything other than "Bearer <token>" yields no token.
func ExtractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate verifies the bearer token and attaches a principal to the
// context. Requests without a token pass through anonymously so that public
// rules and the authorization stage can decide; an expired token
// short-circuits with 401 so clients renew their session instead of getting
// a misleading 403 downstream. Other verification failures also pass
// through anonymously.
func Authenticate(tokens *usecase.TokenService, users port.UserRepository, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		raw, ok := ExtractBearerToken(c)
		if !ok {
			c.Next()
			return
		}

		c.Set(RawTokenKey, raw)

		claims, err := tokens.Verify(c.Request.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrTokenExpired):
				abortWithFilterError(c, http.StatusUnauthorized, CodeTokenExpired,
					"Su sesión ha expirado")
			case errors.Is(err, usecase.ErrTokenBlacklisted):
				abortWithFilterError(c, http.StatusUnauthorized, CodeTokenInvalidated,
					"Su sesión ha sido invalidada")
			default:
				log.Debug("token verification failed, continuing anonymous", zap.Error(err))
				c.Next()
			}
			return
		}

		user, err := users.GetByEmail(c.Request.Context(), claims.Subject)
		if err != nil {
			log.Warn("authenticated token for unknown account",
				zap.String("subject", logger.MaskEmail(claims.Subject)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Set(PrincipalKey, &domain.Principal{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		})

		c.Next()
	}
}
