package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/foroescolar/escuela-api/internal/core/port"
	"github.com/foroescolar/escuela-api/internal/infra/config"
	"github.com/foroescolar/escuela-api/internal/infra/database"
	kafkainfra "github.com/foroescolar/escuela-api/internal/infra/kafka"
	"github.com/foroescolar/escuela-api/internal/infra/logger"
	redisinfra "github.com/foroescolar/escuela-api/internal/infra/redis"
	"github.com/foroescolar/escuela-api/internal/infra/security"
	"github.com/foroescolar/escuela-api/internal/infra/telemetry"
	postgresrepo "github.com/foroescolar/escuela-api/internal/repository/postgres"
	redisrepo "github.com/foroescolar/escuela-api/internal/repository/redis"
	"github.com/foroescolar/escuela-api/internal/transport/http/middleware"
	"github.com/foroescolar/escuela-api/internal/transport/http/routes"
	"github.com/foroescolar/escuela-api/internal/usecase"
)

// Application owns every long-lived component and their shutdown order.
type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	tracer    *telemetry.TracerProvider
	blacklist *usecase.Blacklist
	janitor   *usecase.Janitor
	producer  *kafkainfra.Producer
	consumer  *kafkainfra.ConsumerGroup
}

// New wires the whole service together.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	codec, err := security.NewTokenCodec(security.CodecOptions{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Lifetime: cfg.JWT.TokenLifetime,
		PoolSize: cfg.JWT.VerifierPoolSize,
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	tokenCache := security.NewTokenCache(cfg.Cache.TokenCacheSize)
	negativeCache := security.NewNegativeCache(cfg.Cache.NegativeTTL)
	revocationStore := redisrepo.NewBlacklistRepository(redisClient.Client(), cfg.Blacklist.KeyPrefix)

	var producer *kafkainfra.Producer
	var publisher port.RevocationPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("kafka producer unavailable, revocation fan-out disabled", zap.Error(err))
		} else {
			publisher = kafkainfra.NewRevocationPublisher(producer, log)
		}
	} else {
		log.Info("kafka brokers not configured, revocation fan-out disabled")
	}

	blacklist := usecase.NewBlacklist(revocationStore, publisher, log, usecase.BlacklistOptions{
		SyncInterval: cfg.Blacklist.SyncInterval,
		StoreTimeout: cfg.Blacklist.StoreTimeout,
		FailClosed:   cfg.Blacklist.FailClosed,
	})

	var consumer *kafkainfra.ConsumerGroup
	if producer != nil {
		revocationConsumer := kafkainfra.NewRevocationConsumer(blacklist, log, kafkainfra.RevocationConsumerOptions{
			ReplayTolerance: cfg.JWT.TokenLifetime,
		})
		consumer, err = kafkainfra.NewConsumerGroup(cfg.Kafka, revocationConsumer, log)
		if err != nil {
			log.Warn("kafka consumer group unavailable, relying on store resync", zap.Error(err))
			consumer = nil
		}
	}

	tokenMetrics, err := telemetry.NewTokenMetrics(nil)
	if err != nil {
		blacklist.Close()
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token metrics: %w", err)
	}

	tokenService := usecase.NewTokenService(codec, tokenCache, negativeCache, blacklist, tokenMetrics, log)

	users := postgresrepo.NewUserRepository(pool)
	relationships := postgresrepo.NewRelationshipRepository(pool)

	accessService := usecase.NewAccessService(users, relationships, log)
	policy := usecase.NewAccessPolicy(usecase.DefaultRules(accessService), log)
	authService := usecase.NewAuthService(users, tokenService, log)

	janitor := usecase.NewJanitor(blacklist, negativeCache,
		cfg.Blacklist.SyncInterval, cfg.Cache.NegativeSweepInterval, log)

	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "escuela:rate-limit",
		TTL:       cfg.RateLimit.WindowDuration * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		blacklist.Close()
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Users:       users,
		Blacklist:   blacklist,
		RateLimiter: rateLimiter,
		HTTPMetrics: httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:   authService,
			Tokens: tokenService,
			Policy: policy,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		tracer:    tracer,
		blacklist: blacklist,
		janitor:   janitor,
		producer:  producer,
		consumer:  consumer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts everything
// down in reverse dependency order.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()
	defer a.blacklist.Close()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	// Prime the local blacklist before serving so revocations made while
	// this instance was down take effect immediately.
	if err := a.blacklist.Resync(ctx); err != nil {
		a.logger.Warn("initial blacklist resync failed", zap.Error(err))
	}

	go a.janitor.Run(ctx)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx); err != nil {
				a.logger.Error("kafka consumer stopped", zap.Error(err))
			}
		}()
		defer func() {
			_ = a.consumer.Close()
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting escuela API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
