// Package testutils starts throwaway backing services for integration tests.
// Containers are terminated through t.Cleanup.
package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresEnv struct {
	Store *db.Postgres
	DSN   string
}

// SetupPostgres starts PostgreSQL, applies the embedded migrations and
// returns a connected store. Skipped under -short.
func SetupPostgres(t testing.TB) *PostgresEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tinylink"),
		tcpostgres.WithUsername("tinylink"),
		tcpostgres.WithPassword("tinylink"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	store, err := db.ConnectPostgres(ctx, db.PostgresOptions{
		DSN:              dsn,
		MaxConns:         20,
		AcquireTimeout:   5 * time.Second,
		StatementTimeout: 5 * time.Second,
		LockTimeout:      5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to connect postgres: %v", err)
	}
	t.Cleanup(store.Close)

	migrator, err := db.NewMigrator(store)
	if err != nil {
		t.Fatalf("failed to create migrator: %v", err)
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &PostgresEnv{Store: store, DSN: dsn}
}

// TruncateAll empties every table between subtests sharing one container.
func TruncateAll(t testing.TB, store *db.Postgres) {
	t.Helper()
	_, err := store.Pool.Exec(context.Background(), "TRUNCATE TABLE links, clicks, click_outbox RESTART IDENTITY")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// SetupRedis starts Redis and returns a connected client. Skipped under -short.
func SetupRedis(t testing.TB) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in -short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         endpoint,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	t.Cleanup(func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
	return client
}

// SetupMongo starts MongoDB and returns a connection to a fresh database.
// Skipped under -short.
func SetupMongo(t testing.TB) *db.Mongo {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo integration test in -short mode")
	}

	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.PortEndpoint(ctx, "27017/tcp", "mongodb")
	if err != nil {
		t.Fatalf("failed to get mongo endpoint: %v", err)
	}

	m, err := db.ConnectMongo(ctx, db.MongoOptions{URI: endpoint, Database: "tinylink_test"})
	if err != nil {
		t.Fatalf("failed to connect mongo: %v", err)
	}
	t.Cleanup(func() { _ = m.Disconnect() })
	return m
}
