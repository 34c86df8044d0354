package config

import (
	"fmt"
	"time"

	"github.com/utafrali/inkwell/internal/auth"
	pkgconfig "github.com/utafrali/inkwell/pkg/config"
	"github.com/utafrali/inkwell/pkg/database"
	"github.com/utafrali/inkwell/pkg/kafka"
	"github.com/utafrali/inkwell/pkg/middleware"
	"github.com/utafrali/inkwell/pkg/tracing"
)

const minSecretLen = 32

// Config holds all configuration for the inkwell server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"inkwell"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort          int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RequestTimeout    time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"10s"`

	// Per-IP rate limiting for the auth endpoints.
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	RateLimitTTL   time.Duration `env:"RATE_LIMIT_TTL" envDefault:"10m"`

	// Forwarding headers are honoured only from peers inside these CIDRs.
	RateLimitTrustedProxies []string `env:"RATE_LIMIT_TRUSTED_PROXIES" envSeparator:","`

	// Per-email login throttling, backed by redis.
	LoginMaxAttempts   int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginAttemptWindow time.Duration `env:"LOGIN_ATTEMPT_WINDOW" envDefault:"15m"`

	// Debug endpoints
	PprofEnabled    bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedIPs []string `env:"PPROF_ALLOWED_IPS" envSeparator:"," envDefault:"127.0.0.1/32,::1/128"`

	MigrateOnStart     bool          `env:"MIGRATE_ON_START" envDefault:"true"`
	SlowQueryThreshold time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	EventsEnabled     bool   `env:"EVENTS_ENABLED" envDefault:"true"`
	EventsTopicPrefix string `env:"EVENTS_TOPIC_PREFIX" envDefault:"inkwell"`

	Tokens   auth.TokenConfig
	Argon2   auth.Argon2Params       `envPrefix:"ARGON2_"`
	Postgres database.PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    database.RedisConfig    `envPrefix:"REDIS_"`
	Kafka    kafka.ProducerConfig    `envPrefix:"KAFKA_"`
	Breaker  kafka.BreakerConfig     `envPrefix:"KAFKA_BREAKER_"`
	Tracing  tracing.Config          `envPrefix:"OTEL_"`
	CORS     middleware.CORSConfig   `envPrefix:"CORS_"`
}

// Load reads configuration from the environment, after applying any dotenv
// files, and validates it.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load inkwell config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Tracing.ServiceName = cfg.ServiceName
	cfg.Tracing.ServiceVersion = cfg.Version
	cfg.Tracing.Environment = cfg.Environment
	return cfg, nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Tokens.AccessSecret == c.Tokens.RefreshSecret {
		return fmt.Errorf("ACCESS_SECRET and REFRESH_SECRET must differ")
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Tokens.AccessTTL >= c.Tokens.RefreshTTL {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRY (%s) must be shorter than REFRESH_TOKEN_EXPIRY (%s)",
			c.Tokens.AccessTTL, c.Tokens.RefreshTTL)
	}

	// Outside development, require strong secrets.
	if !c.IsDevelopment() {
		if len(c.Tokens.AccessSecret) < minSecretLen {
			return fmt.Errorf("ACCESS_SECRET must be at least %d characters long, got %d", minSecretLen, len(c.Tokens.AccessSecret))
		}
		if len(c.Tokens.RefreshSecret) < minSecretLen {
			return fmt.Errorf("REFRESH_SECRET must be at least %d characters long, got %d", minSecretLen, len(c.Tokens.RefreshSecret))
		}
	}

	if err := c.Argon2.Validate(); err != nil {
		return fmt.Errorf("invalid ARGON2 settings: %w", err)
	}
	if c.LoginMaxAttempts < 1 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive, got %d", c.LoginMaxAttempts)
	}
	if c.LoginAttemptWindow <= 0 {
		return fmt.Errorf("LOGIN_ATTEMPT_WINDOW must be positive")
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("KAFKA_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be positive, got rps=%v burst=%d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.RateLimitTTL <= 0 {
		return fmt.Errorf("RATE_LIMIT_TTL must be positive, got %v", c.RateLimitTTL)
	}
	return nil
}
