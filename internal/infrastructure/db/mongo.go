package db

import (
	"context"
	"fmt"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

const mongoConnectTimeout = 10 * time.Second

type MongoOptions struct {
	URI         string
	Database    string
	AppName     string
	MaxPoolSize uint64
}

// Mongo holds the client and the database the click rollup lives in.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo dials with command tracing enabled and waits for the primary
// to answer before returning.
func ConnectMongo(ctx context.Context, opts MongoOptions) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMonitor(otelmongo.NewMonitor()).
		SetServerSelectionTimeout(mongoConnectTimeout)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("unable to create mongo client: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping mongo: %w", err)
	}

	logger.Info("MongoDB connected", zap.String("database", opts.Database))
	return &Mongo{Client: client, Database: client.Database(opts.Database)}, nil
}

func (m *Mongo) Disconnect() error {
	if m == nil || m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}
