package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/inkwell/internal/auth"
	"github.com/utafrali/inkwell/internal/config"
	"github.com/utafrali/inkwell/internal/event"
	handler "github.com/utafrali/inkwell/internal/handler/http"
	"github.com/utafrali/inkwell/internal/repository/postgres"
	redisrepo "github.com/utafrali/inkwell/internal/repository/redis"
	"github.com/utafrali/inkwell/internal/service"
	"github.com/utafrali/inkwell/migrations"
	"github.com/utafrali/inkwell/pkg/database"
	"github.com/utafrali/inkwell/pkg/health"
	pkgkafka "github.com/utafrali/inkwell/pkg/kafka"
	"github.com/utafrali/inkwell/pkg/middleware"
	"github.com/utafrali/inkwell/pkg/tracing"
)

// App wires together all dependencies and runs the inkwell server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	stopLimiter    context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	a.pool, err = database.NewPostgresPool(ctx, &cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, cfg.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if cfg.MigrateOnStart {
		if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	if cfg.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	}

	// Initialize Redis for login throttling.
	a.redis, err = database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr()))

	// Initialize the event producer.
	var events service.EventPublisher = event.Discard{}
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(cfg.Kafka, logger)
		breaker := pkgkafka.NewBreakerPublisher(a.producer, "kafka-events", cfg.Breaker, logger)
		events = event.NewProducer(breaker, cfg.EventsTopicPrefix, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))
	}

	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	a.stopLimiter = stopLimiter

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	})
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	router, err := buildRouter(limiterCtx, cfg, a.pool, a.redis, events, healthHandler, logger)
	if err != nil {
		return nil, err
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return a, nil
}

// buildRouter assembles repositories, services and the HTTP router on top
// of already connected stores. ctx bounds the rate limiter's janitor.
func buildRouter(
	ctx context.Context,
	cfg *config.Config,
	db database.DBTX,
	rdb redis.UniversalClient,
	events service.EventPublisher,
	healthHandler *health.Handler,
	logger *slog.Logger,
) (http.Handler, error) {
	hasher, err := auth.NewArgon2Hasher(cfg.Argon2)
	if err != nil {
		return nil, fmt.Errorf("create hasher: %w", err)
	}
	tokens, err := auth.NewTokenManager(cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("create token manager: %w", err)
	}

	userRepo := postgres.NewUserRepository(db)
	blogRepo := postgres.NewBlogRepository(db)
	attempts := redisrepo.NewLoginAttemptStore(rdb)

	authService := service.NewAuthService(userRepo, hasher, tokens, events, logger,
		service.WithLoginThrottle(attempts, service.LoginThrottle{
			MaxAttempts: cfg.LoginMaxAttempts,
			Window:      cfg.LoginAttemptWindow,
		}),
	)
	userService := service.NewUserService(userRepo, events, logger)
	blogService := service.NewBlogService(blogRepo, events, logger)

	authLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitTTL,
		middleware.WithTrustedProxies(cfg.RateLimitTrustedProxies, logger))

	return handler.NewRouter(
		handler.Services{Auth: authService, Users: userService, Blogs: blogService},
		healthHandler,
		logger,
		handler.RouterOptions{
			ServiceName:     cfg.ServiceName,
			RequestTimeout:  cfg.RequestTimeout,
			CORS:            cfg.CORS,
			AuthRateLimiter: authLimiter,
			PprofEnabled:    cfg.PprofEnabled,
			PprofAllowedIPs: cfg.PprofAllowedIPs,
		},
	), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer, Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp acquired. Fields left nil by a
// failed NewApp are skipped.
func (a *App) closeResources() error {
	var errs []error

	if a.stopLimiter != nil {
		a.stopLimiter()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
