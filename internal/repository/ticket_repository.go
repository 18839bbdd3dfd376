package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// TicketFilter narrows ticket listings. Results are always newest first.
type TicketFilter struct {
	Answered *bool
	UserID   *int64
	Limit    int
	Offset   int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// TransitionAnswered flips answered from -> to and reports whether the
	// row was in the expected state.
	TransitionAnswered(ctx context.Context, id int64, from, to bool) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (user_id, display_name, handle, message, answered)
        VALUES ($1,$2,$3,$4,FALSE)
        RETURNING id, created_at`
	ticket.Answered = false
	return mapPgError(r.pool.QueryRow(ctx, query,
		ticket.UserID,
		ticket.DisplayName,
		ticket.Handle,
		ticket.Message,
	).Scan(&ticket.ID, &ticket.CreatedAt))
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, user_id, display_name, handle, message, answered, created_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.DisplayName,
		&ticket.Handle,
		&ticket.Message,
		&ticket.Answered,
		&ticket.CreatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, user_id, display_name, handle, message, answered, created_at FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Answered != nil {
		args = append(args, *filter.Answered)
		clauses = append(clauses, fmt.Sprintf("answered=$%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) TransitionAnswered(ctx context.Context, id int64, from, to bool) (bool, error) {
	const query = `UPDATE tickets SET answered=$1 WHERE id=$2 AND answered=$3`
	cmd, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, mapPgError(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.DisplayName,
			&ticket.Handle,
			&ticket.Message,
			&ticket.Answered,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
