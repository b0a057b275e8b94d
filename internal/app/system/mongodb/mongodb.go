// Package mongodb opens the MongoDB client shared by the server and cohortctl.
package mongodb

import (
	"context"
	"fmt"

	"github.com/dalemusser/cohorthub/internal/app/system/timeouts"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Options configures Connect. Zero pool sizes keep the driver defaults.
type Options struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
}

// Connect validates the URI, connects and pings the primary.
// The caller owns the returned client and must Disconnect it.
func Connect(ctx context.Context, o Options, log *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	if err := wafflemongo.ValidateURI(o.URI); err != nil {
		return nil, nil, fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if o.Database == "" {
		return nil, nil, fmt.Errorf("MongoDB database name is empty")
	}

	clientOpts := options.Client().
		ApplyURI(o.URI).
		SetServerSelectionTimeout(timeouts.Ping())
	if o.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(o.MinPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	if log != nil {
		log.Info("connected to MongoDB",
			zap.String("database", o.Database),
			zap.Uint64("max_pool_size", o.MaxPoolSize),
			zap.Uint64("min_pool_size", o.MinPoolSize))
	}
	return client, client.Database(o.Database), nil
}
