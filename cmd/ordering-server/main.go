package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/akriventsev/ordering/framework/adapters/cache"
	natsevents "github.com/akriventsev/ordering/framework/adapters/events"
	resttransport "github.com/akriventsev/ordering/framework/adapters/transport"
	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/framework/cqrs"
	"github.com/akriventsev/ordering/framework/events"
	"github.com/akriventsev/ordering/framework/metrics"
	"github.com/akriventsev/ordering/framework/observability"
	"github.com/akriventsev/ordering/framework/transport"
	"github.com/akriventsev/ordering/internal/api"
	"github.com/akriventsev/ordering/internal/application"
	"github.com/akriventsev/ordering/internal/config"
	"github.com/akriventsev/ordering/internal/domain"
	"github.com/akriventsev/ordering/internal/infrastructure/memory"
	"github.com/akriventsev/ordering/internal/infrastructure/postgres"
)

const serviceName = "ordering"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	var m *metrics.Metrics
	var metricsProvider *metrics.Provider
	if cfg.Metrics.Enabled {
		provider, err := metrics.SetupMetrics(metrics.MetricsConfig{ServiceName: serviceName})
		if err != nil {
			return err
		}
		metricsProvider = provider
		if m, err = metrics.NewMetrics(); err != nil {
			return err
		}
	}

	tracing, err := observability.NewTracingManager(observability.TracingConfig{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      serviceName,
		Exporter:         cfg.Tracing.Exporter,
		ExporterEndpoint: cfg.Tracing.Endpoint,
		SamplingRate:     1.0,
	})
	if err != nil {
		return err
	}
	// останавливаются в обратном порядке
	var components []core.Lifecycle
	start := func(c core.Lifecycle) error {
		if err := c.Start(ctx); err != nil {
			return err
		}
		components = append(components, c)
		return nil
	}
	if err := start(tracing); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	health := observability.NewHealthRegistry(2 * time.Second)
	health.Register(observability.NewHealthCheck("storage", store.Ping))

	bus := events.NewInMemoryEventBus()
	application.SubscribeMetrics(bus, m)

	queries := transport.NewInMemoryQueryBus()
	if cfg.Redis.Addr != "" {
		redisCfg := cache.DefaultRedisConfig()
		redisCfg.Addr = cfg.Redis.Addr
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.TTL = cfg.Redis.TTL

		client, err := cache.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()

		queryCache := cache.NewRedisQueryCache(client, redisCfg, logger, m)
		queries.WithCache(queryCache)
		application.SubscribeCacheInvalidation(bus, queryCache, logger)
		health.Register(observability.NewHealthCheck("redis", queryCache.Ping))
		logger.Info("query cache enabled", slog.String("addr", cfg.Redis.Addr))
	}

	if cfg.NATS.URL != "" {
		conn, err := natsevents.Connect(cfg.NATS.URL, serviceName)
		if err != nil {
			return err
		}
		defer conn.Drain()

		natsCfg := natsevents.DefaultNATSEventConfig()
		natsCfg.Conn = conn
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		adapter, err := natsevents.NewNATSEventAdapter(natsCfg)
		if err != nil {
			return err
		}
		if err := start(adapter); err != nil {
			return err
		}
		bus.Subscribe(events.AllEvents, adapter)
		health.Register(observability.NewHealthCheck("nats", func(ctx context.Context) error {
			return conn.FlushWithContext(ctx)
		}))
		logger.Info("event forwarding enabled", slog.String("url", cfg.NATS.URL))
	}

	pipeline := cqrs.Pipeline{
		Logger:  logger,
		Metrics: m,
		Timeout: cfg.Orders.CommandTimeout,
		Tracing: cfg.Tracing.Enabled,
	}
	commands := transport.NewInMemoryCommandBus().WithMiddleware(pipeline.CommandMiddlewares()...)
	queries.WithMiddleware(pipeline.QueryMiddlewares()...)

	svc := application.NewService(application.Config{
		Store:   store,
		Events:  bus,
		Logger:  logger,
		Metrics: m,
		Retry: application.RetryPolicy{
			MaxAttempts:  cfg.Orders.RetryAttempts,
			InitialDelay: cfg.Orders.RetryInitialDelay,
			MaxDelay:     cfg.Orders.RetryMaxDelay,
		},
	})
	if err := svc.Register(commands, queries); err != nil {
		return err
	}

	rest := resttransport.NewRESTAdapter(resttransport.RESTConfig{
		Port:            cfg.Server.Port,
		BasePath:        cfg.Server.BasePath,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		EnableTracing:   cfg.Tracing.Enabled,
		ServiceName:     serviceName,
	}, logger)
	api.NewHandler(commands, queries, uuid.NewString).Register(rest.Group())
	rest.Engine().GET("/healthz", health.Handler())
	if metricsProvider != nil {
		rest.Engine().GET("/metrics", gin.WrapH(metricsProvider.Handler()))
	}

	if err := start(rest); err != nil {
		return err
	}
	logger.Info("ordering service started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Database.Driver),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-rest.Errors():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Stop(shutdownCtx); err != nil {
			logger.Error("component shutdown failed", slog.Any("error", err))
		}
	}
	if err := bus.Shutdown(shutdownCtx); err != nil {
		logger.Error("event bus shutdown failed", slog.Any("error", err))
	}
	if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", slog.Any("error", err))
	}
	return serveErr
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Store, error) {
	if cfg.Database.Driver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.Database.URL, logger); err != nil {
			return nil, err
		}
	}
	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		LockTimeout: cfg.Database.LockTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}
