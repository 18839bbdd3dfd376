package sqlitestore

import (
	"context"
	"math"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/persistence"
	"github.com/spec-kit/relay-desk/internal/repository"
)

const userColumns = `id, display_name, handle, rank, balance, blocked, created_at`

type userRepository struct {
	db *persistence.SQLite
}

func (r *userRepository) Ensure(ctx context.Context, user *domain.User) (*domain.User, error) {
	rank := user.Rank
	if rank == "" {
		rank = domain.RankGuest
	}
	var stored *domain.User
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO users (id, display_name, handle, rank, balance, blocked, created_at)
			VALUES (?, ?, ?, ?, ?, 0, ?)
			ON CONFLICT (id) DO NOTHING`, &sqlitex.ExecOptions{
			Args: []any{user.ID, user.DisplayName, user.Handle, string(rank), user.Balance, nowNanos()},
		})
		if err != nil {
			return err
		}
		stored, err = getUser(conn, user.ID)
		return err
	})
	return stored, err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user *domain.User
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		var err error
		user, err = getUser(conn, id)
		return err
	})
	return user, err
}

func (r *userRepository) UpdateRank(ctx context.Context, id int64, rank domain.Rank) error {
	return withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `UPDATE users SET rank = ? WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{string(rank), id},
		}); err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *userRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	return withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `UPDATE users SET blocked = ? WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{boolToInt(blocked), id},
		}); err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *userRepository) AdjustBalance(ctx context.Context, id int64, delta int64, clampAtZero bool) (int64, error) {
	var balance int64
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		var err error
		balance, err = addBalance(conn, id, delta, clampAtZero)
		return err
	})
	return balance, err
}

// addBalance applies delta unless the sum would leave the int64 range.
// SQLite silently widens an overflowing integer sum to REAL, so the bound
// is checked in the WHERE clause instead of relying on an error.
func addBalance(conn *sqlite.Conn, id, delta int64, clampAtZero bool) (int64, error) {
	expr := `balance + ?`
	if clampAtZero {
		expr = `MAX(balance + ?, 0)`
	}
	guard, bound := `balance <= ?`, int64(math.MaxInt64)-delta
	if delta < 0 {
		guard, bound = `balance >= ?`, int64(math.MinInt64)-delta
	}

	var (
		balance int64
		found   bool
	)
	err := sqlitex.Execute(conn, `UPDATE users SET balance = `+expr+` WHERE id = ? AND `+guard+` RETURNING balance`, &sqlitex.ExecOptions{
		Args: []any{delta, id, bound},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			balance = stmt.ColumnInt64(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	if found {
		return balance, nil
	}

	exists := false
	err = sqlitex.Execute(conn, `SELECT 1 FROM users WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(*sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, repository.ErrBalanceOverflow
	}
	return 0, repository.ErrNotFound
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	var users []domain.User
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+userColumns+` FROM users
			ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, &sqlitex.ExecOptions{
			Args: []any{limit, offset},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				users = append(users, scanUser(stmt))
				return nil
			},
		})
	})
	return users, err
}

func (r *userRepository) ListIDsByRank(ctx context.Context, rank domain.Rank) ([]int64, error) {
	var ids []int64
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT id FROM users WHERE rank = ? ORDER BY id`, &sqlitex.ExecOptions{
			Args: []any{string(rank)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ids = append(ids, stmt.ColumnInt64(0))
				return nil
			},
		})
	})
	return ids, err
}

func getUser(conn *sqlite.Conn, id int64) (*domain.User, error) {
	var user *domain.User
	err := sqlitex.Execute(conn, `SELECT `+userColumns+` FROM users WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			u := scanUser(stmt)
			user = &u
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func scanUser(stmt *sqlite.Stmt) domain.User {
	return domain.User{
		ID:          stmt.ColumnInt64(0),
		DisplayName: stmt.ColumnText(1),
		Handle:      stmt.ColumnText(2),
		Rank:        domain.Rank(stmt.ColumnText(3)),
		Balance:     stmt.ColumnInt64(4),
		Blocked:     stmt.ColumnInt64(5) != 0,
		CreatedAt:   fromNanos(stmt.ColumnInt64(6)),
	}
}
