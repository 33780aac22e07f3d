package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sifan077/curto/config"
	_ "github.com/sifan077/curto/docs"
	"github.com/sifan077/curto/internal/app/repository"
	appserver "github.com/sifan077/curto/internal/app/server"
	"github.com/sifan077/curto/internal/app/service"
	"github.com/sifan077/curto/internal/app/shortid"
	"github.com/sifan077/curto/internal/app/telemetry"
	"github.com/sifan077/curto/internal/http/middleware"
	"github.com/sifan077/curto/internal/infra/logger"
	infraNATS "github.com/sifan077/curto/internal/infra/nats"
	infraPostgres "github.com/sifan077/curto/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/curto/internal/infra/prometheus"
	infraRedis "github.com/sifan077/curto/internal/infra/redis"
	infraSQLite "github.com/sifan077/curto/internal/infra/sqlite"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.MustInit(logger.Config{
		Development: os.Getenv("APP_ENV") != "production",
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	configured, err := logger.Init(logger.ConfigFrom(cfg.Log, cfg.Application.Development()))
	if err != nil {
		log.Fatal("Failed to build logger", zap.Error(err))
	}
	log = configured

	log.Info("Configuration loaded successfully",
		zap.String("addr", cfg.Application.Addr()),
		zap.String("env", cfg.Application.Env),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Duration("database_timeout", cfg.Database.Timeout),
		zap.Bool("rate_limit", cfg.Application.ShouldRateLimit),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
	)

	store, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to open link store", zap.Error(err))
	}
	defer closeStore()

	registry := infraPrometheus.NewRegistry()
	sinks := []telemetry.Sink{infraPrometheus.NewSink(registry, cfg.Metrics.Namespace)}

	if cfg.NATS.Enabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer drain(natsConn, log)

		if err := infraNATS.EnsureStream(js, cfg.NATS.Stream, cfg.NATS.Subject); err != nil {
			log.Fatal("Failed to ensure link event stream", zap.Error(err))
		}
		sinks = append(sinks, infraNATS.NewEventSink(js, cfg.NATS.Subject, log))
		log.Info("Connected to NATS successfully", zap.String("stream", cfg.NATS.Stream))
	}
	sink := telemetry.Multi(sinks...)

	links := repository.WithTimeout(store, repository.TimeoutOptions{
		Timeout: cfg.Database.Timeout,
		Sink:    sink,
		Logger:  log,
	})

	filter := shortid.NewTakenFilter(0, 0)
	warmCtx, cancelWarm := context.WithTimeout(ctx, 30*time.Second)
	loaded, err := service.Warm(warmCtx, store, filter)
	cancelWarm()
	if err != nil {
		log.Warn("Failed to warm id filter", zap.Error(err))
	} else {
		log.Info("Warmed id filter", zap.Int("links", loaded))
	}

	linkService := service.NewLinkService(service.Dependencies{
		Store:  links,
		Codec:  shortid.Default(),
		Filter: filter,
		Sink:   sink,
		Logger: log,
	})

	var (
		limiter      middleware.HitCounter
		localLimiter bool
	)
	if cfg.Application.ShouldRateLimit {
		redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, rate limiting in process memory", zap.Error(err))
			localLimiter = true
		} else {
			defer closeRedis(redisClient, log)
			limiter = middleware.NewRedisCounter(redisClient)
			log.Info("Connected to Redis successfully", zap.String("addr", infraRedis.Addr(cfg.Redis)))
		}
	}

	server := appserver.New(appserver.Dependencies{
		Logger:         log,
		Links:          linkService,
		Registry:       registry,
		Namespace:      cfg.Metrics.Namespace,
		RateLimiter:    limiter,
		LocalRateLimit: localLimiter,
		RateLimit: middleware.RateLimitConfig{
			MaxRequests: cfg.Application.RateLimitMax,
			Window:      cfg.Application.RateLimitWindow,
		},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.Application.Addr()))
		errCh <- server.Listen(cfg.Application.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shut down HTTP server", zap.Error(err))
		}
	}
}

// openStore builds the configured link store and returns a function releasing
// its resources.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (repository.LinkStore, func(), error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("Using in-memory link store, links are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil

	case "sqlite":
		db, err := infraSQLite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Opened SQL link store", zap.String("driver", infraSQLite.DriverName(cfg.URL)))
		return repository.NewSQLiteStore(db), func() { closeDB(db, log) }, nil

	case "postgres":
		pool, err := infraPostgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := infraPostgres.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("Connected to Postgres successfully")
		return repository.NewPostgresStore(pool), func() { closePool(pool) }, nil
	}
	return nil, nil, errors.New("unknown database driver: " + cfg.Driver)
}

func closeDB(db *sql.DB, log *zap.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
}

func closePool(pool *pgxpool.Pool) {
	pool.Close()
}

func closeRedis(client *redis.Client, log *zap.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("Failed to close Redis client", zap.Error(err))
	}
}

func drain(conn *nats.Conn, log *zap.Logger) {
	if err := conn.Drain(); err != nil {
		log.Warn("Failed to drain NATS connection", zap.Error(err))
	}
}
