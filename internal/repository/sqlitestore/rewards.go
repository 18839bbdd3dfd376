package sqlitestore

import (
	"context"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/persistence"
	"github.com/spec-kit/relay-desk/internal/repository"
)

type rewardRepository struct {
	db *persistence.SQLite
}

func (r *rewardRepository) CreateCode(ctx context.Context, code *domain.RewardCode) error {
	createdAt := nowNanos()
	return withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `
			INSERT INTO reward_codes (code, reward, created_at) VALUES (?, ?, ?)
			ON CONFLICT (code) DO NOTHING`, &sqlitex.ExecOptions{
			Args: []any{code.Code, code.Reward, createdAt},
		}); err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return repository.ErrDuplicate
		}
		code.CreatedAt = fromNanos(createdAt)
		return nil
	})
}

func (r *rewardRepository) GetCode(ctx context.Context, code string) (*domain.RewardCode, error) {
	var rc *domain.RewardCode
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT code, reward, created_at FROM reward_codes WHERE code = ?`, &sqlitex.ExecOptions{
			Args: []any{code},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rc = &domain.RewardCode{
					Code:      stmt.ColumnText(0),
					Reward:    stmt.ColumnInt64(1),
					CreatedAt: fromNanos(stmt.ColumnInt64(2)),
				}
				return nil
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, repository.ErrNotFound
	}
	return rc, nil
}

func (r *rewardRepository) HasRedeemed(ctx context.Context, userID int64, code string) (bool, error) {
	var exists bool
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT 1 FROM redemptions WHERE user_id = ? AND code = ?`, &sqlitex.ExecOptions{
			Args: []any{userID, code},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = true
				return nil
			},
		})
	})
	return exists, err
}

func (r *rewardRepository) Redeem(ctx context.Context, userID int64, code string, reward int64) (balance int64, err error) {
	conn, err := r.db.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer r.db.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, err
	}
	defer endTransaction(&err)

	if err := sqlitex.Execute(conn, `
		INSERT INTO redemptions (user_id, code, redeemed_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, code) DO NOTHING`, &sqlitex.ExecOptions{
		Args: []any{userID, code, nowNanos()},
	}); err != nil {
		return 0, err
	}
	if conn.Changes() == 0 {
		return 0, repository.ErrAlreadyRedeemed
	}

	if balance, err = addBalance(conn, userID, reward, false); err != nil {
		return 0, err
	}
	return balance, nil
}
