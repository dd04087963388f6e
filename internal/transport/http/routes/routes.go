package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/port"
	"github.com/foroescolar/escuela-api/internal/infra/config"
	"github.com/foroescolar/escuela-api/internal/transport/http/handlers"
	"github.com/foroescolar/escuela-api/internal/transport/http/middleware"
	"github.com/foroescolar/escuela-api/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth   *usecase.AuthService
	Tokens *usecase.TokenService
	Policy *usecase.AccessPolicy
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Services    ServiceSet
	Users       port.UserRepository
	Blacklist   *usecase.Blacklist
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// Register configures the Gin engine. The security chain runs in a fixed
// order on every request: context enrichment, correlation id, access log,
// metrics, authentication, blacklist recheck, authorization.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger, middleware.RequestLoggerOptions{
		SampleRate:     deps.Config.Logging.SampleRate,
		SlowThreshold:  deps.Config.Logging.SlowThreshold,
		BypassPrefixes: []string{"/swagger-ui", "/v3/api-docs"},
	}))
	r.Use(deps.HTTPMetrics.Handler())
	r.Use(middleware.Authenticate(deps.Services.Tokens, deps.Users, deps.Logger))
	r.Use(middleware.BlacklistGuard(deps.Blacklist))
	r.Use(middleware.Authorize(deps.Services.Policy, deps.Logger))

	checks := map[string]handlers.DependencyChecker{}
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}
	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		authHandler.RegisterRoutes(authGroup, buildLoginMiddlewares(deps)...)
	}

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "auth_login_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
