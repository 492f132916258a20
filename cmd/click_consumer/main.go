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
	mongoStorage "github.com/IgorGrieder/tinylink/internal/storage/mongo"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type consumerConfig struct {
	appEnv        string
	logLevel      string
	appName       string
	appVersion    string
	otelEndpoint  string
	mongoURI      string
	mongoDatabase string

	kafkaBrokers []string
	kafkaTopic   string
	kafkaGroupID string

	fetchMaxWait   time.Duration
	operationTTL   time.Duration
	consumeBackoff time.Duration
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

	serviceName := cfg.appName + "-click-consumer"
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

	mongoConn, err := db.ConnectMongo(context.Background(), db.MongoOptions{
		URI:         cfg.mongoURI,
		Database:    cfg.mongoDatabase,
		AppName:     serviceName,
		MaxPoolSize: 20,
	})
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoConn.Disconnect() }()

	rollupRepo, err := mongoStorage.NewClickRollupRepository(context.Background(), mongoConn)
	if err != nil {
		logger.Fatal("failed to initialize click rollup repository", zap.Error(err))
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.kafkaBrokers,
		Topic:       cfg.kafkaTopic,
		GroupID:     cfg.kafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     cfg.fetchMaxWait,
		StartOffset: kafka.FirstOffset,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("click consumer started",
		zap.Strings("kafka_brokers", cfg.kafkaBrokers),
		zap.String("kafka_topic", cfg.kafkaTopic),
		zap.String("kafka_group", cfg.kafkaGroupID),
	)

	newConsumer(reader, rollupRepo, cfg).run(ctx)
	logger.Info("click consumer stopping")
}

func loadConfig() (consumerConfig, error) {
	cfg := consumerConfig{
		appEnv:         config.GetEnv("APP_ENV", "production"),
		logLevel:       config.GetEnv("LOG_LEVEL", "info"),
		appName:        config.GetEnv("APP_NAME", "tinylink"),
		appVersion:     config.GetEnv("APP_VERSION", "1.0"),
		otelEndpoint:   config.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://jaeger:4318"),
		mongoURI:       config.GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		mongoDatabase:  config.GetEnv("MONGODB_DATABASE", "tinylink"),
		kafkaBrokers:   config.SplitCSV(config.GetEnv("KAFKA_BROKERS", "kafka:9092")),
		kafkaTopic:     config.GetEnv("KAFKA_CLICK_TOPIC", events.ClickRecordedTopic),
		kafkaGroupID:   config.GetEnv("KAFKA_CLICK_GROUP_ID", "click-rollup"),
		fetchMaxWait:   config.GetEnvDuration("KAFKA_CONSUMER_MAX_WAIT", 500*time.Millisecond),
		operationTTL:   config.GetEnvDuration("KAFKA_CONSUMER_OPERATION_TIMEOUT", 5*time.Second),
		consumeBackoff: config.GetEnvDuration("KAFKA_CONSUMER_BACKOFF", 500*time.Millisecond),
	}

	var p config.Problems
	p.Check(len(cfg.kafkaBrokers) > 0, "KAFKA_BROKERS must contain at least one broker")
	p.Check(strings.TrimSpace(cfg.kafkaTopic) != "", "KAFKA_CLICK_TOPIC must not be empty")
	p.Check(strings.TrimSpace(cfg.kafkaGroupID) != "", "KAFKA_CLICK_GROUP_ID must not be empty")
	p.Check(cfg.operationTTL > 0, "KAFKA_CONSUMER_OPERATION_TIMEOUT must be > 0")
	p.Check(cfg.consumeBackoff > 0, "KAFKA_CONSUMER_BACKOFF must be > 0")
	if err := p.Err(); err != nil {
		return consumerConfig{}, err
	}

	return cfg, nil
}
