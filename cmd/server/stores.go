package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hrdms/internal/platform/config"
	"hrdms/internal/platform/redis"
	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/audit/store/cached"
	"hrdms/pkg/platform/audit/store/memory"
	"hrdms/pkg/platform/audit/store/mongodb"
	"hrdms/pkg/platform/audit/store/postgres"
)

// cleanup releases a backing connection on shutdown.
type cleanup func(ctx context.Context) error

// backends holds the opened store plus what main needs to probe and close
// its connections.
type backends struct {
	store    audit.Store
	cleanups []cleanup
	checks   map[string]func(ctx context.Context) error
}

func (b *backends) close(ctx context.Context, log *slog.Logger) {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		if err := b.cleanups[i](ctx); err != nil {
			log.Warn("close backing store", "error", err)
		}
	}
}

// openStore builds the configured audit store, wrapped by the Redis cache
// when one is configured. The returned backends is never nil.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*backends, error) {
	b := &backends{checks: make(map[string]func(context.Context) error)}

	switch cfg.Audit.Store {
	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return b, fmt.Errorf("connect mongo: %w", err)
		}
		b.cleanups = append(b.cleanups, client.Disconnect)
		if err := client.Ping(ctx, nil); err != nil {
			return b, fmt.Errorf("ping mongo: %w", err)
		}
		b.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		s := mongodb.New(client.Database(cfg.Mongo.Database), log)
		if err := s.EnsureIndexes(ctx); err != nil {
			return b, err
		}
		b.store = s
	case config.StorePostgres:
		db, err := sql.Open(cfg.Postgres.Driver, cfg.Postgres.URL)
		if err != nil {
			return b, fmt.Errorf("open postgres: %w", err)
		}
		b.cleanups = append(b.cleanups, func(context.Context) error { return db.Close() })
		if err := db.PingContext(ctx); err != nil {
			return b, fmt.Errorf("ping postgres: %w", err)
		}
		b.checks["postgres"] = db.PingContext
		s := postgres.New(db)
		if err := s.Migrate(ctx); err != nil {
			return b, err
		}
		b.store = s
	default:
		b.store = memory.NewInMemoryStore()
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return b, err
	}
	if rdb != nil {
		b.cleanups = append(b.cleanups, func(context.Context) error { return rdb.Close() })
		b.checks["redis"] = rdb.Health
		b.store = cached.New(b.store, rdb, cfg.Audit.CacheTTL, log)
		log.Info("audit record cache enabled", "ttl", cfg.Audit.CacheTTL)
	}

	log.Info("audit store ready", "backend", cfg.Audit.Store)
	return b, nil
}
