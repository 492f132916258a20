package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IgorGrieder/tinylink/internal/config"
	"github.com/IgorGrieder/tinylink/internal/events"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/telemetry"
	postgresStorage "github.com/IgorGrieder/tinylink/internal/storage/postgres"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type workerConfig struct {
	appEnv       string
	logLevel     string
	appName      string
	appVersion   string
	otelEndpoint string
	postgresDSN  string

	kafkaBrokers []string
	kafkaTopic   string
	workerID     string

	pollInterval time.Duration
	batchSize    int
	writeTimeout time.Duration
	retryBase    time.Duration
	retryMax     time.Duration
	idleWait     time.Duration
	claimLease   time.Duration
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.appEnv, cfg.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceName := cfg.appName + "-outbox-worker"
	shutdownTracer, err := telemetry.InitTracer(context.Background(), telemetry.Options{
		Endpoint:       cfg.otelEndpoint,
		ServiceName:    serviceName,
		ServiceVersion: cfg.appVersion,
		Environment:    cfg.appEnv,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", zap.Error(err))
		shutdownTracer = nil
	} else {
		logger.Info("OpenTelemetry tracer initialized",
			zap.String("endpoint", cfg.otelEndpoint),
			zap.String("service", serviceName),
		)
	}
	defer func() {
		if shutdownTracer == nil {
			return
		}
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("failed to shutdown tracer", zap.Error(err))
		}
	}()

	pgConn, err := db.ConnectPostgres(context.Background(), db.PostgresOptions{
		DSN:              cfg.postgresDSN,
		MaxConns:         4,
		StatementTimeout: cfg.writeTimeout,
		AcquireTimeout:   cfg.writeTimeout,
	})
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgConn.Close()

	outboxRepo, err := postgresStorage.NewClickOutboxRepository(pgConn)
	if err != nil {
		logger.Fatal("failed to initialize outbox repository", zap.Error(err))
	}

	writer := kafka.Writer{
		Addr:                   kafka.TCP(cfg.kafkaBrokers...),
		Topic:                  cfg.kafkaTopic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("outbox worker started",
		zap.Strings("kafka_brokers", cfg.kafkaBrokers),
		zap.String("kafka_topic", cfg.kafkaTopic),
		zap.String("worker_id", cfg.workerID),
		zap.Int("batch_size", cfg.batchSize),
		zap.Duration("poll_interval", cfg.pollInterval),
		zap.Duration("claim_lease", cfg.claimLease),
	)

	pub := newPublisher(outboxRepo, &writer, cfg)
	pub.run(ctx, cfg.pollInterval, cfg.idleWait)
	logger.Info("outbox worker stopping")
}

func loadConfig() (cfg workerConfig, _ error) {
	cfg = workerConfig{
		appEnv:       config.GetEnv("APP_ENV", "production"),
		logLevel:     config.GetEnv("LOG_LEVEL", "info"),
		appName:      config.GetEnv("APP_NAME", "tinylink"),
		appVersion:   config.GetEnv("APP_VERSION", "1.0"),
		otelEndpoint: config.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://jaeger:4318"),
		postgresDSN:  config.GetEnv("DB_DSN", config.DefaultPostgresDSN()),
		kafkaBrokers: config.SplitCSV(config.GetEnv("KAFKA_BROKERS", "kafka:9092")),
		kafkaTopic:   config.GetEnv("KAFKA_CLICK_TOPIC", events.ClickRecordedTopic),
		workerID:     config.GetEnv("OUTBOX_WORKER_ID", config.DefaultWorkerID("outbox-worker")),
		pollInterval: config.GetEnvDuration("OUTBOX_POLL_INTERVAL", 250*time.Millisecond),
		batchSize:    config.GetEnvInt("OUTBOX_BATCH_SIZE", 200),
		writeTimeout: config.GetEnvDuration("OUTBOX_WRITE_TIMEOUT", 5*time.Second),
		retryBase:    config.GetEnvDuration("OUTBOX_RETRY_BASE_DELAY", 1*time.Second),
		retryMax:     config.GetEnvDuration("OUTBOX_RETRY_MAX_DELAY", 30*time.Second),
		idleWait:     config.GetEnvDuration("OUTBOX_IDLE_WAIT", 50*time.Millisecond),
		claimLease:   config.GetEnvDuration("OUTBOX_CLAIM_LEASE", 30*time.Second),
	}

	var p config.Problems
	p.Check(strings.TrimSpace(cfg.postgresDSN) != "", "DB_DSN must not be empty")
	p.Check(len(cfg.kafkaBrokers) > 0, "KAFKA_BROKERS must contain at least one broker")
	p.Check(strings.TrimSpace(cfg.workerID) != "", "OUTBOX_WORKER_ID must not be empty")
	p.Check(cfg.batchSize > 0, "OUTBOX_BATCH_SIZE must be > 0")
	p.Check(cfg.pollInterval > 0, "OUTBOX_POLL_INTERVAL must be > 0")
	p.Check(cfg.writeTimeout > 0, "OUTBOX_WRITE_TIMEOUT must be > 0")
	p.Check(cfg.claimLease > 0, "OUTBOX_CLAIM_LEASE must be > 0")
	p.Check(cfg.retryBase > 0, "OUTBOX_RETRY_BASE_DELAY must be > 0")
	p.Check(cfg.retryMax >= cfg.retryBase, "OUTBOX_RETRY_MAX_DELAY must be >= OUTBOX_RETRY_BASE_DELAY")
	if err := p.Err(); err != nil {
		return workerConfig{}, err
	}

	return cfg, nil
}
