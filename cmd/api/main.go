package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/racunko/racunko-backend/internal/api/rest"
	"github.com/racunko/racunko-backend/internal/infrastructure/config"
	"github.com/racunko/racunko-backend/internal/infrastructure/database"
	"github.com/racunko/racunko-backend/internal/infrastructure/repository"
	"github.com/racunko/racunko-backend/internal/infrastructure/telemetry"
	"github.com/racunko/racunko-backend/internal/service/ingestion"
	"github.com/racunko/racunko-backend/internal/service/reconciliation"
	"github.com/racunko/racunko-backend/internal/service/retention"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to configuration file")
		migrate        = flag.Bool("migrate", false, "Run database migrations and exit")
		migrationsPath = flag.String("migrations", "file://migrations", "Migration source URL")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *migrate {
		if err := database.RunMigrations(cfg.Database.URL, *migrationsPath); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "racunko-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create zap logger: %w", err)
	}
	defer zapLogger.Sync()

	pool, err := database.NewPool(ctx, &cfg.Database, zapLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	var locker ingestion.Locker = ingestion.NoopLocker{}
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		if cfg.Redis.DB != 0 {
			opts.DB = cfg.Redis.DB
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = ingestion.NewRedisLocker(redisClient)
	} else {
		logger.Warn("redis not configured, concurrent imports are serialized in-process only")
	}

	billRepo := repository.NewBillRepository(pool)
	metrics := reconciliation.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	classifier := reconciliation.NewService(billRepo, logger, metrics)
	ingestSvc := ingestion.NewService(classifier, billRepo, locker, logger)
	sweeper := retention.NewSweeper(billRepo, logger)

	handler := rest.NewHandler(rest.HandlerConfig{
		Ingestion:     ingestSvc,
		Sweeper:       sweeper,
		Logger:        logger,
		Version:       cfg.Version,
		RetentionDays: cfg.Retention.Days,
		ReadyCheck: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			if redisClient != nil {
				if err := redisClient.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
	})

	router := rest.NewRouter(handler, rest.RouterConfig{
		Logger:            logger,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.Server.RateLimit.BurstSize,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sweeper.Start(sweepCtx, cfg.Retention.SweepInterval, cfg.Retention.Days)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"version", cfg.Version,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	stopSweeper()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
