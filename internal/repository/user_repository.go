package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// UserRepository defines persistence access for bot users.
type UserRepository interface {
	// Ensure inserts the user when missing and returns the stored row.
	// Existing rows are returned unchanged.
	Ensure(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateRank(ctx context.Context, id int64, rank domain.Rank) error
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	// AdjustBalance adds delta and returns the new balance. With clampAtZero
	// the result never goes below zero; otherwise a negative result fails.
	AdjustBalance(ctx context.Context, id int64, delta int64, clampAtZero bool) (int64, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	// ListIDsByRank returns the ids of every user holding rank, blocked or not.
	ListIDsByRank(ctx context.Context, rank domain.Rank) ([]int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Ensure(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
        INSERT INTO users (id, display_name, handle, rank, balance, blocked)
        VALUES ($1, $2, $3, $4, $5, FALSE)
        ON CONFLICT (id) DO NOTHING`

	rank := user.Rank
	if rank == "" {
		rank = domain.RankGuest
	}
	if _, err := r.pool.Exec(ctx, query,
		user.ID,
		user.DisplayName,
		user.Handle,
		rank,
		user.Balance,
	); err != nil {
		return nil, mapPgError(err)
	}
	return r.GetByID(ctx, user.ID)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, display_name, handle, rank, balance, blocked, created_at
        FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.DisplayName,
		&user.Handle,
		&user.Rank,
		&user.Balance,
		&user.Blocked,
		&user.CreatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &user, nil
}

func (r *userRepository) UpdateRank(ctx context.Context, id int64, rank domain.Rank) error {
	const query = `UPDATE users SET rank=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, rank, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	const query = `UPDATE users SET blocked=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, blocked, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) AdjustBalance(ctx context.Context, id int64, delta int64, clampAtZero bool) (int64, error) {
	query := `UPDATE users SET balance = balance + $1 WHERE id=$2 RETURNING balance`
	if clampAtZero {
		query = `UPDATE users SET balance = GREATEST(balance + $1, 0) WHERE id=$2 RETURNING balance`
	}
	var balance int64
	if err := r.pool.QueryRow(ctx, query, delta, id).Scan(&balance); err != nil {
		return 0, mapPgError(err)
	}
	return balance, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const query = `
        SELECT id, display_name, handle, rank, balance, blocked, created_at
        FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) ListIDsByRank(ctx context.Context, rank domain.Rank) ([]int64, error) {
	const query = `SELECT id FROM users WHERE rank=$1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, string(rank))
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.DisplayName,
			&user.Handle,
			&user.Rank,
			&user.Balance,
			&user.Blocked,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
