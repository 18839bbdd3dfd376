// Package sqlitestore implements the repository interfaces on the embedded
// SQLite pool. It backs STORE_DRIVER=sqlite deployments and the service tests.
package sqlitestore

import (
	"context"
	"time"

	"zombiezen.com/go/sqlite"

	"github.com/spec-kit/relay-desk/internal/persistence"
	"github.com/spec-kit/relay-desk/internal/repository"
)

// NewSet builds the SQLite-backed repositories.
func NewSet(db *persistence.SQLite) repository.Set {
	return repository.Set{
		Users:   &userRepository{db: db},
		Tickets: &ticketRepository{db: db},
		Rewards: &rewardRepository{db: db},
		Events:  &eventRepository{db: db},
	}
}

// withConn borrows a connection for the duration of fn.
func withConn(ctx context.Context, db *persistence.SQLite, fn func(conn *sqlite.Conn) error) error {
	conn, err := db.Take(ctx)
	if err != nil {
		return err
	}
	defer db.Put(conn)
	return fn(conn)
}

func nowNanos() int64 {
	return time.Now().UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
