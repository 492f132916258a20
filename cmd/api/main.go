package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IgorGrieder/tinylink/internal/config"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/tinylink/internal/processing/analytics"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
	postgresStorage "github.com/IgorGrieder/tinylink/internal/storage/postgres"
	redisStorage "github.com/IgorGrieder/tinylink/internal/storage/redis"
	httpTransport "github.com/IgorGrieder/tinylink/internal/transport/http"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		shutdownTracer, err = telemetry.InitTracer(context.Background(), telemetry.Options{
			Endpoint:       cfg.OTel.Endpoint,
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Env,
		})
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	ctx := context.Background()
	store, err := db.ConnectPostgres(ctx, db.PostgresOptions{
		DSN:              cfg.Postgres.DSN,
		MaxConns:         cfg.Postgres.MaxConns,
		MinConns:         cfg.Postgres.MinConns,
		ConnectTimeout:   cfg.Postgres.ConnectTimeout,
		AcquireTimeout:   cfg.Postgres.AcquireTimeout,
		StatementTimeout: cfg.Postgres.StatementTimeout,
		LockTimeout:      cfg.Postgres.LockTimeout,
		IdleInTxTimeout:  cfg.Postgres.IdleInTxTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer store.Close()

	if cfg.Postgres.AutoMigrate {
		if err := migrateUp(store); err != nil {
			logger.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	linkSvc, analyticsSvc, err := buildServices(cfg, store)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	var limiters httpTransport.Limiters
	if cfg.Redis.Enabled {
		redisClient, err := redisStorage.New(ctx, redisStorage.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			limiters = httpTransport.Limiters{
				API:      redisStorage.NewFixedWindowLimiter(redisClient, "rl:api", cfg.RateLimit.API.Window),
				Create:   redisStorage.NewFixedWindowLimiter(redisClient, "rl:create", cfg.RateLimit.Create.Window),
				Redirect: redisStorage.NewFixedWindowLimiter(redisClient, "rl:redirect", cfg.RateLimit.Redirect.Window),
			}
		}
	}

	router := httpTransport.NewRouter(cfg, linkSvc, analyticsSvc, limiters)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
		zap.Bool("outbox", cfg.Outbox.Enabled),
		zap.Bool("rate_limit", limiters.API != nil),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func migrateUp(store *db.Postgres) error {
	migrator, err := db.NewMigrator(store)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()
	return migrator.Up()
}

func buildServices(cfg *config.Config, store *db.Postgres) (*links.Service, *analytics.Service, error) {
	linkRepo, err := postgresStorage.NewLinksRepository(store)
	if err != nil {
		return nil, nil, err
	}

	var outbox *postgresStorage.ClickOutboxRepository
	if cfg.Outbox.Enabled {
		outbox, err = postgresStorage.NewClickOutboxRepository(store)
		if err != nil {
			return nil, nil, err
		}
	}
	ledger, err := postgresStorage.NewClickLedger(store, outbox)
	if err != nil {
		return nil, nil, err
	}

	analyticsRepo, err := postgresStorage.NewAnalyticsRepository(store)
	if err != nil {
		return nil, nil, err
	}

	linkSvc := links.NewService(linkRepo, ledger, links.NewCryptoGenerator(), cfg.Shortener.CodeLength)
	analyticsSvc := analytics.NewService(analyticsRepo, linkRepo)
	return linkSvc, analyticsSvc, nil
}
