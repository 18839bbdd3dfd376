package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/spec-kit/relay-desk/internal/config"
)

// SQLiteSchema mirrors migrations/0001_init.sql for the embedded store.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           INTEGER PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	handle       TEXT NOT NULL DEFAULT '',
	rank         TEXT NOT NULL DEFAULT 'Guest',
	balance      INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
	blocked      INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	handle       TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL,
	answered     INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tickets_open ON tickets(answered, created_at);

CREATE TABLE IF NOT EXISTS reward_codes (
	code       TEXT PRIMARY KEY,
	reward     INTEGER NOT NULL CHECK (reward > 0),
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS redemptions (
	user_id     INTEGER NOT NULL,
	code        TEXT NOT NULL,
	redeemed_at INTEGER NOT NULL,
	UNIQUE (user_id, code)
);

CREATE TABLE IF NOT EXISTS events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	prize         TEXT NOT NULL DEFAULT '',
	schedule      TEXT NOT NULL DEFAULT '',
	media_kind    TEXT,
	media_file_id TEXT,
	creator_id    INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);
`

// SQLite is a fixed-size pool of connections to the embedded store.
// Connections are not safe for concurrent use; Take one per goroutine.
type SQLite struct {
	pool   *sqlitex.Pool
	path   string
	logger *zap.Logger
}

// OpenSQLite opens the pool and applies pragmas and schema to every connection.
func OpenSQLite(cfg config.SQLiteConfig, logger *zap.Logger) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite pool opened", zap.String("path", cfg.Path), zap.Int("pool_size", poolSize))
	return &SQLite{pool: pool, path: cfg.Path, logger: logger}, nil
}

// Take borrows a connection. The caller must Put it back.
func (s *SQLite) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool.
func (s *SQLite) Put(conn *sqlite.Conn) {
	s.pool.Put(conn)
}

// Ping runs a trivial query on a pooled connection.
func (s *SQLite) Ping(ctx context.Context) error {
	conn, err := s.Take(ctx)
	if err != nil {
		return err
	}
	defer s.Put(conn)
	return sqlitex.ExecuteTransient(conn, "SELECT 1", nil)
}

// Close closes all connections, waiting for borrowed ones.
func (s *SQLite) Close() {
	if s == nil || s.pool == nil {
		return
	}
	if err := s.pool.Close(); err != nil {
		s.logger.Error("sqlite pool close error", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.logger.Info("sqlite pool closed", zap.String("path", s.path))
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=OFF",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, SQLiteSchema, nil); err != nil {
		return fmt.Errorf("sqlite: schema: %w", err)
	}
	return nil
}
