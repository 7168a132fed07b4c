package athletes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harry-lons/runsum-be-nonorg/internal/config"
	"github.com/harry-lons/runsum-be-nonorg/internal/database"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// Backend is an opened store plus the handles needed for readiness and shutdown.
type Backend struct {
	Name  string
	Repo  Repository
	SQL   *sql.DB
	Mongo *mongo.Client
}

// Ping checks the underlying connection. The memory backend is always ready.
func (b *Backend) Ping(ctx context.Context) error {
	switch {
	case b.SQL != nil:
		return b.SQL.PingContext(ctx)
	case b.Mongo != nil:
		return b.Mongo.Ping(ctx, nil)
	}
	return nil
}

func (b *Backend) Close(ctx context.Context) {
	if b.SQL != nil {
		_ = b.SQL.Close()
	}
	if b.Mongo != nil {
		_ = b.Mongo.Disconnect(ctx)
	}
}

const connectAttempts = 5

// Open selects the store from configuration: Postgres when DATABASE_URL is set,
// MongoDB when MONGODB_URI is set, otherwise an in-memory store.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch {
	case cfg.Database.URL != "":
		db, err := retry(ctx, "postgres", func() (*sql.DB, error) {
			return database.OpenPostgres(ctx, cfg.Database)
		})
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Backend{Name: "postgres", Repo: NewPostgresRepository(db), SQL: db}, nil

	case cfg.MongoDB.URI != "":
		client, err := retry(ctx, "mongodb", func() (*mongo.Client, error) {
			return database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		})
		if err != nil {
			return nil, err
		}
		repo, err := NewMongoRepository(ctx, client.Database(cfg.MongoDB.Database))
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &Backend{Name: "mongodb", Repo: repo, Mongo: client}, nil
	}

	logger.Warnf("no DATABASE_URL or MONGODB_URI configured: using in-memory athlete store")
	return &Backend{Name: "memory", Repo: NewMemoryRepository()}, nil
}

// retry tolerates startup races with the database container.
func retry[T any](ctx context.Context, name string, connect func() (T, error)) (T, error) {
	backoff := time.Second
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		out, err = connect()
		if err == nil {
			return out, nil
		}
		logger.Warnf("attempt %d/%d: failed to connect to %s: %v", attempt, connectAttempts, name, err)
		if attempt < connectAttempts {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return out, fmt.Errorf("could not connect to %s after %d attempts: %w", name, connectAttempts, err)
}
