package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/foroescolar/escuela-api/internal/transport/http/middleware"
	"github.com/foroescolar/escuela-api/internal/usecase"
)

// LoginRequest carries the credential payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse returns the issued token and the authenticated identity.
type LoginResponse struct {
	Token string `json:"token"`
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Role  string `json:"rol"`
}

// ErrorResponse is the handler-level error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with the request's trace ID.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		TraceID: middleware.GetTraceID(c),
	}
}

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
	chain = append(chain, h.login)
	r.POST("/login", chain...)

	r.POST("/logout", h.logout)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	ctx, cancel := contextWithTimeout(c, 5*time.Second)
	defer cancel()

	token, user, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "credenciales inválidas"))
		case errors.Is(err, usecase.ErrInactiveAccount):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "cuenta inactiva"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		}
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		ID:    user.ID,
		Name:  user.Name,
		Role:  user.Role.String(),
	})
}

// logout revokes the presented token. Logging out twice, or with a token
// that was never issued here, still returns 200: the outcome the client
// asked for already holds.
func (h *AuthHandler) logout(c *gin.Context) {
	raw := middleware.GetRawToken(c)
	if raw == "" {
		if extracted, ok := middleware.ExtractBearerToken(c); ok {
			raw = extracted
		}
	}
	if raw == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing bearer token"))
		return
	}

	ctx, cancel := contextWithTimeout(c, 5*time.Second)
	defer cancel()

	if err := h.auth.Logout(ctx, raw); err != nil {
		if errors.Is(err, usecase.ErrTokenMalformed) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "malformed token"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "sesión cerrada"})
}
