package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/savedcarts/internal/auth"
	"github.com/utafrali/savedcarts/internal/cartclient"
	"github.com/utafrali/savedcarts/internal/config"
	"github.com/utafrali/savedcarts/internal/event"
	handler "github.com/utafrali/savedcarts/internal/handler/http"
	"github.com/utafrali/savedcarts/internal/repository"
	pgrepo "github.com/utafrali/savedcarts/internal/repository/postgres"
	redisrepo "github.com/utafrali/savedcarts/internal/repository/redis"
	"github.com/utafrali/savedcarts/internal/service"
	"github.com/utafrali/savedcarts/internal/view"
	"github.com/utafrali/savedcarts/migrations"
	"github.com/utafrali/savedcarts/pkg/database"
	"github.com/utafrali/savedcarts/pkg/health"
	"github.com/utafrali/savedcarts/pkg/httpclient"
	pkgkafka "github.com/utafrali/savedcarts/pkg/kafka"
	"github.com/utafrali/savedcarts/pkg/middleware"
	"github.com/utafrali/savedcarts/pkg/tracing"
)

const serviceName = "saved-carts-service"

// App wires together all dependencies and runs the saved-carts service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Tracing.
	traceCfg := tracing.DefaultConfig(serviceName)
	traceCfg.Environment = cfg.Environment
	traceCfg.Enabled = cfg.OTELEnabled
	traceCfg.OTLPEndpoint = cfg.OTELEndpoint
	traceCfg.SampleRate = cfg.OTELSampleRate
	shutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracerShutdown = shutdown

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	healthHandler := health.NewHandler()

	// Redis always backs notices.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	attrs, err := a.attributeStore(ctx, reg, healthHandler)
	if err != nil {
		a.close()
		return nil, err
	}
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	// Cart service client behind retries and a circuit breaker.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = time.Duration(cfg.CartServiceTimeoutSeconds) * time.Second
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "cart-service",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	cartHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(clientCfg), cbCfg, httpclient.NewBreakerMetrics(reg), logger,
	)
	carts := cartclient.New(cartHTTP, cfg.CartServiceURL, logger)

	// Build the dependency graph.
	opts := []service.Option{service.WithMetrics(service.NewMetrics(reg))}
	var kafkaMetrics *pkgkafka.Metrics
	if cfg.KafkaEnabled {
		kafkaMetrics = pkgkafka.NewMetrics(reg)
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), kafkaMetrics, logger)
		opts = append(opts, service.WithPublisher(event.NewProducer(a.producer, logger)))
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

		brokers := cfg.KafkaBrokers
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, brokers)
		})
	}
	snapshots := service.NewSnapshotService(repository.NewSnapshotStore(attrs), carts, logger, opts...)

	if cfg.KafkaEnabled && cfg.UserDeletedTopic != "" {
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaConsumerGroup,
			Topic:    cfg.UserDeletedTopic,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		}, event.NewConsumer(snapshots, logger).Handle, kafkaMetrics, logger)
	}

	renderer, err := view.NewRenderer(cfg.SiteURL, cfg.Location())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	var validate middleware.TokenValidator
	if cfg.JWTSecret != "" {
		validate = auth.NewValidator(cfg.JWTSecret).TokenValidator()
	} else {
		logger.Warn("JWT_SECRET is empty, only the X-User-ID header from trusted proxies identifies users")
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Service:           snapshots,
		Notices:           redisrepo.NewNoticeStore(rdb, cfg.NoticeTTL()),
		Renderer:          renderer,
		Health:            healthHandler,
		HTTPMetrics:       middleware.NewHTTPMetrics(reg),
		Gatherer:          reg,
		TokenValidator:    validate,
		TrustedProxyCIDRs: cfg.TrustedProxyCIDRs,
		CartURL:           cfg.CartURL,
		PprofCIDRs:        cfg.PprofAllowedCIDRs,
		CORS:              cors,
		Logger:            logger,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// attributeStore opens the configured backend for per-user attributes.
func (a *App) attributeStore(ctx context.Context, reg prometheus.Registerer, h *health.Handler) (repository.AttributeStore, error) {
	if a.cfg.StoreBackend != config.BackendPostgres {
		return redisrepo.NewAttributeStore(a.rdb), nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.String("database", pgCfg.DBName),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(reg, pool, serviceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	h.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return pgrepo.NewAttributeStore(pool), nil
}

// Run starts the HTTP server and the optional consumer, and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	var wg sync.WaitGroup
	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.consumer.Start(consumerCtx); err != nil {
				a.logger.Error("user.deleted consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stopConsumer()
	wg.Wait()

	if err := a.Shutdown(); err != nil {
		return err
	}
	return runErr
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()

	a.logger.Info("application shutdown complete")
	return nil
}

// close releases the backing connections that were opened so far and flushes
// the tracer. NewApp calls it on every failure after tracing started.
func (a *App) close() {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
