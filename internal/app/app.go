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
	"github.com/redis/go-redis/v9"

	"github.com/devmojahid/restu-food/internal/config"
	"github.com/devmojahid/restu-food/internal/event"
	handler "github.com/devmojahid/restu-food/internal/handler/http"
	"github.com/devmojahid/restu-food/internal/offer"
	"github.com/devmojahid/restu-food/internal/repository"
	postgresrepo "github.com/devmojahid/restu-food/internal/repository/postgres"
	redisrepo "github.com/devmojahid/restu-food/internal/repository/redis"
	"github.com/devmojahid/restu-food/internal/service"
	"github.com/devmojahid/restu-food/migrations"
	"github.com/devmojahid/restu-food/pkg/database"
	"github.com/devmojahid/restu-food/pkg/health"
	"github.com/devmojahid/restu-food/pkg/httpclient"
	pkgkafka "github.com/devmojahid/restu-food/pkg/kafka"
	"github.com/devmojahid/restu-food/pkg/middleware"
	"github.com/devmojahid/restu-food/pkg/tracing"
)

// purgeInterval is how often expired snapshots are deleted from Postgres.
const purgeInterval = time.Hour

// notificationQueueSize bounds notifications waiting for the broker.
const notificationQueueSize = 1024

// App wires together all dependencies and runs the cart service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	pgRepo         *postgresrepo.CartRepository
	producer       *pkgkafka.Producer
	dispatcher     *event.Dispatcher
	stopDispatch   context.CancelFunc
	dispatchDone   chan struct{}
	cartService    *service.CartService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	workers        sync.WaitGroup
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    "cart",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Insecure:       cfg.OTELInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	// Durable cart slot.
	repo, err := a.initStore(ctx, healthHandler)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}

	// Notification channel.
	var notifier event.Notifier
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		notifier = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		notifier = event.NewLogNotifier(logger)
		logger.Info("kafka disabled, cart notifications go to the log")
	}

	// Offer service client with retries and a circuit breaker.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.OfferTimeoutDuration()
	clientCfg.BackoffMax = time.Second
	offerHTTP := httpclient.New(clientCfg)

	breakerCfg := httpclient.DefaultBreakerConfig("offer-service")
	breakerCfg.MaxRequests = cfg.CBMaxRequests
	breakerCfg.Interval = time.Duration(cfg.CBInterval) * time.Second
	breakerCfg.Timeout = time.Duration(cfg.CBTimeout) * time.Second
	breakerCfg.FailureRatio = cfg.CBFailureRatio
	breakerCfg.MinRequests = cfg.CBMinRequests
	offerCB := httpclient.NewBreaker(offerHTTP, breakerCfg, logger).WithFallback(offer.CircuitOpenFallback)
	validator := offer.NewHTTPValidator(offerCB, cfg.OfferServiceURL, cfg.OfferTimeoutDuration(), logger)

	a.dispatcher = event.NewDispatcher(notifier, notificationQueueSize, logger)
	a.cartService = service.NewCartService(repo, validator, a.dispatcher, logger, cfg.TaxRate)

	// HTTP router.
	router := handler.NewRouter(a.cartService, healthHandler, logger, handler.RouterConfig{
		PprofCIDRs: cfg.PprofAllowedCIDRs,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			ExposedHeaders: []string{"X-Correlation-ID"},
			Environment:    cfg.Environment,
		},
		// Leaves room for one offer call with its retries.
		RequestTimeout:     3*cfg.OfferTimeoutDuration() + 5*time.Second,
		OfferRatePerMinute: cfg.OfferRatePerMinute,
		OfferBurst:         cfg.OfferBurst,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3*cfg.OfferTimeoutDuration() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// initStore connects the configured backend and registers its health check.
func (a *App) initStore(ctx context.Context, healthHandler *health.Handler) (repository.CartRepository, error) {
	cfg := a.cfg

	switch cfg.Store {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Postgres(), a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := database.RegisterPoolMetrics(pool, "cart"); err != nil {
			a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		database.LogSlowQueries(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)

		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		a.pool = pool
		a.pgRepo = postgresrepo.NewCartRepository(pool, cfg.CartTTLDuration())
		healthHandler.RegisterCritical("postgres", pool.Ping)
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.String("database", cfg.PostgresDB),
		)
		return a.pgRepo, nil

	default:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}

		a.rdb = rdb
		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		a.logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return redisrepo.NewCartRepository(rdb, cfg.CartTTLDuration()), nil
	}
}

// Run starts the HTTP server and background workers, and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	// The dispatcher outlives the workers so notifications from requests
	// still draining during shutdown are delivered.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	a.stopDispatch = stopDispatch
	a.dispatchDone = make(chan struct{})
	go func() {
		defer close(a.dispatchDone)
		a.dispatcher.Run(dispatchCtx)
	}()

	idle := a.cfg.CartIdleDuration()
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		a.cartService.RunSweeper(workerCtx, sweepInterval(idle), idle)
	}()

	if a.pgRepo != nil {
		a.workers.Add(1)
		go func() {
			defer a.workers.Done()
			a.runPurger(workerCtx)
		}()
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store", a.cfg.Store),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stopWorkers()
	a.workers.Wait()

	return errors.Join(runErr, a.Shutdown())
}

// runPurger deletes expired Postgres snapshots until ctx is done.
func (a *App) runPurger(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.pgRepo.PurgeExpired(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "failed to purge expired carts", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "purged expired carts", slog.Int64("count", n))
			}
		}
	}
}

// sweepInterval checks for idle carts several times per idle window.
func sweepInterval(idle time.Duration) time.Duration {
	interval := idle / 4
	if interval < time.Second {
		return time.Second
	}
	if interval > 5*time.Minute {
		return 5 * time.Minute
	}
	return interval
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Notification dispatcher (deliver what the drained requests queued)
// 3. Tracer (flush pending spans from drained requests)
// 4. Kafka producer
// 5. Redis client or PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Deliver queued notifications.
	if a.stopDispatch != nil {
		a.stopDispatch()
		<-a.dispatchDone
	}

	// 3. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 5. Close the store.
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
