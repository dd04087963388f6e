package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Cache     CacheSettings     `mapstructure:"cache"`
	Blacklist BlacklistSettings `mapstructure:"blacklist"`
	CORS      CORSSettings      `mapstructure:"cors"`
	Logging   LoggingSettings   `mapstructure:"logging"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the durable blacklist backend.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the revocation event fan-out. An empty broker
// list disables Kafka entirely.
type KafkaSettings struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
}

type JWTSettings struct {
	Secret           string        `mapstructure:"secret"`
	Issuer           string        `mapstructure:"issuer"`
	TokenLifetime    time.Duration `mapstructure:"token_lifetime"`
	VerifierPoolSize int           `mapstructure:"verifier_pool_size"`
}

type CacheSettings struct {
	TokenCacheSize        int           `mapstructure:"token_cache_size"`
	NegativeTTL           time.Duration `mapstructure:"negative_ttl"`
	NegativeSweepInterval time.Duration `mapstructure:"negative_sweep_interval"`
}

type BlacklistSettings struct {
	KeyPrefix    string        `mapstructure:"key_prefix"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	FailClosed   bool          `mapstructure:"fail_closed"`
}

// CORSSettings lists the browser origins allowed to call the API. The
// middleware echoes a matched origin back; there is no wildcard mode.
type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingSettings struct {
	SampleRate    float64       `mapstructure:"sample_rate"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type RateLimitSettings struct {
	WindowDuration   time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ESCUELA")
	v.AutomaticEnv()

	setDefaults(v)

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "escuela-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "escuela")
	v.SetDefault("postgres.database", "escuela")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("postgres.health_check_period", time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "escuela.token.revoked")
	v.SetDefault("kafka.consumer_group", "escuela-api")

	v.SetDefault("jwt.issuer", "Foro Escolar")
	v.SetDefault("jwt.token_lifetime", 24*time.Hour)
	v.SetDefault("jwt.verifier_pool_size", 4)

	v.SetDefault("cache.token_cache_size", 1000)
	v.SetDefault("cache.negative_ttl", 30*time.Minute)
	v.SetDefault("cache.negative_sweep_interval", time.Hour)

	v.SetDefault("blacklist.key_prefix", "blacklist")
	v.SetDefault("blacklist.sync_interval", time.Minute)
	v.SetDefault("blacklist.store_timeout", 300*time.Millisecond)
	v.SetDefault("blacklist.fail_closed", false)

	v.SetDefault("cors.allowed_origins", []string{
		"https://globalia-tech.com",
		"https://foredu.globalia-tech.com",
		"http://localhost:5173",
		"http://localhost:10000",
	})

	v.SetDefault("logging.sample_rate", 1.0)
	v.SetDefault("logging.slow_threshold", time.Second)

	v.SetDefault("rate_limit.window_duration", time.Minute)
	v.SetDefault("rate_limit.login_max_attempts", 10)

	v.SetDefault("telemetry.service_name", "escuela-api")
	v.SetDefault("telemetry.sampling_rate", 0.1)
}

func validate(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return fmt.Errorf("jwt.secret is required (ESCUELA_JWT_SECRET)")
	}
	if cfg.JWT.TokenLifetime <= 0 {
		return fmt.Errorf("jwt.token_lifetime must be positive")
	}
	if cfg.JWT.VerifierPoolSize <= 0 {
		return fmt.Errorf("jwt.verifier_pool_size must be positive")
	}
	if cfg.Cache.TokenCacheSize <= 0 {
		return fmt.Errorf("cache.token_cache_size must be positive")
	}
	if cfg.Logging.SampleRate < 0 || cfg.Logging.SampleRate > 1 {
		return fmt.Errorf("logging.sample_rate must be within [0, 1]")
	}
	return nil
}
