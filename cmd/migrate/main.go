package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/IgorGrieder/tinylink/internal/config"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const usage = "usage: migrate up|down|version"

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := logger.Init(config.GetEnv("APP_ENV", "production"), config.GetEnv("LOG_LEVEL", "info")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := db.ConnectPostgres(context.Background(), db.PostgresOptions{
		DSN:            config.GetEnv("DB_DSN", config.DefaultPostgresDSN()),
		MaxConns:       2,
		ConnectTimeout: config.GetEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
	})
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer store.Close()

	migrator, err := db.NewMigrator(store)
	if err != nil {
		logger.Fatal("failed to create migrator", zap.Error(err))
	}
	defer func() { _ = migrator.Close() }()

	if err := run(migrator, os.Args[1]); err != nil {
		logger.Fatal("migration failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

type schemaMigrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
}

func run(m schemaMigrator, command string) error {
	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q (%s)", command, usage)
	}
}
