package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// RewardRepository covers reward codes and their redemption records.
type RewardRepository interface {
	CreateCode(ctx context.Context, code *domain.RewardCode) error
	GetCode(ctx context.Context, code string) (*domain.RewardCode, error)
	HasRedeemed(ctx context.Context, userID int64, code string) (bool, error)
	// Redeem inserts the (user, code) record and credits reward in one
	// transaction. The unique key decides races: the loser gets
	// ErrAlreadyRedeemed and no balance change.
	Redeem(ctx context.Context, userID int64, code string, reward int64) (int64, error)
}

type rewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository builds repository.
func NewRewardRepository(pool *pgxpool.Pool) RewardRepository {
	return &rewardRepository{pool: pool}
}

func (r *rewardRepository) CreateCode(ctx context.Context, code *domain.RewardCode) error {
	const query = `
        INSERT INTO reward_codes (code, reward) VALUES ($1, $2)
        RETURNING created_at`
	return mapPgError(r.pool.QueryRow(ctx, query, code.Code, code.Reward).Scan(&code.CreatedAt))
}

func (r *rewardRepository) GetCode(ctx context.Context, code string) (*domain.RewardCode, error) {
	const query = `SELECT code, reward, created_at FROM reward_codes WHERE code=$1`
	var rc domain.RewardCode
	if err := r.pool.QueryRow(ctx, query, code).Scan(&rc.Code, &rc.Reward, &rc.CreatedAt); err != nil {
		return nil, mapPgError(err)
	}
	return &rc, nil
}

func (r *rewardRepository) HasRedeemed(ctx context.Context, userID int64, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM redemptions WHERE user_id=$1 AND code=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, code).Scan(&exists); err != nil {
		return false, mapPgError(err)
	}
	return exists, nil
}

func (r *rewardRepository) Redeem(ctx context.Context, userID int64, code string, reward int64) (balance int64, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const insert = `
        INSERT INTO redemptions (user_id, code) VALUES ($1, $2)
        ON CONFLICT (user_id, code) DO NOTHING`
	cmd, err := tx.Exec(ctx, insert, userID, code)
	if err != nil {
		return 0, mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return 0, ErrAlreadyRedeemed
	}

	const credit = `UPDATE users SET balance = balance + $1 WHERE id=$2 RETURNING balance`
	if err = tx.QueryRow(ctx, credit, reward, userID).Scan(&balance); err != nil {
		return 0, mapPgError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, mapPgError(err)
	}
	return balance, nil
}
