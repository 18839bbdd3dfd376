// Package bootstrap opens the configured store and conversation backend.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/conversation"
	"github.com/spec-kit/relay-desk/internal/persistence"
	"github.com/spec-kit/relay-desk/internal/repository"
	"github.com/spec-kit/relay-desk/internal/repository/sqlitestore"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is an opened entity store.
type Store struct {
	repository.Set
	// Name is the driver name, used as the readiness key.
	Name   string
	Health Pinger
	close  func()
}

// Close releases the store's connections.
func (s *Store) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// OpenStore connects to the store selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		db, err := persistence.OpenSQLite(cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return &Store{Set: sqlitestore.NewSet(db), Name: "sqlite", Health: db, close: db.Close}, nil

	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return &Store{Set: repository.NewPostgresSet(pg.PoolHandle()), Name: "postgres", Health: pg, close: pg.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Tracker is the conversation tracker with its optional Redis connection.
type Tracker struct {
	*conversation.Tracker
	// Redis is nil for the memory backend.
	Redis *persistence.Redis
}

// Close releases the Redis connection, if any.
func (t *Tracker) Close() {
	if t != nil && t.Redis != nil {
		t.Redis.Close()
	}
}

// OpenTracker builds the tracker for STATE_BACKEND.
func OpenTracker(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Tracker {
	ttl := cfg.Conversation.StateTTL()
	if cfg.Conversation.Backend == config.StateBackendRedis {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		return &Tracker{
			Tracker: conversation.NewTracker(conversation.NewRedisStore(redis.Client, redis.KeyPrefix), ttl, logger),
			Redis:   redis,
		}
	}
	return &Tracker{Tracker: conversation.NewTracker(conversation.NewMemoryStore(), ttl, logger)}
}

// ReadinessChecks lists the dependencies probed by /health/ready.
func ReadinessChecks(store *Store, tracker *Tracker) map[string]Pinger {
	checks := map[string]Pinger{store.Name: store.Health}
	if tracker != nil && tracker.Redis != nil {
		checks["redis"] = tracker.Redis
	}
	return checks
}
