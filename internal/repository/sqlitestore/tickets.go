package sqlitestore

import (
	"context"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/persistence"
	"github.com/spec-kit/relay-desk/internal/repository"
)

const ticketColumns = `id, user_id, display_name, handle, message, answered, created_at`

type ticketRepository struct {
	db *persistence.SQLite
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	createdAt := nowNanos()
	return withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO tickets (user_id, display_name, handle, message, answered, created_at)
			VALUES (?, ?, ?, ?, 0, ?)`, &sqlitex.ExecOptions{
			Args: []any{ticket.UserID, ticket.DisplayName, ticket.Handle, ticket.Message, createdAt},
		})
		if err != nil {
			return err
		}
		ticket.ID = conn.LastInsertRowID()
		ticket.Answered = false
		ticket.CreatedAt = fromNanos(createdAt)
		return nil
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				t := scanTicket(stmt)
				ticket = &t
				return nil
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, repository.ErrNotFound
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Answered != nil {
		clauses = append(clauses, "answered = ?")
		args = append(args, boolToInt(*filter.Answered))
	}
	if filter.UserID != nil {
		clauses = append(clauses, "user_id = ?")
		args = append(args, *filter.UserID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	var tickets []domain.Ticket
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tickets = append(tickets, scanTicket(stmt))
				return nil
			},
		})
	})
	return tickets, err
}

func (r *ticketRepository) TransitionAnswered(ctx context.Context, id int64, from, to bool) (bool, error) {
	var changed bool
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `UPDATE tickets SET answered = ? WHERE id = ? AND answered = ?`, &sqlitex.ExecOptions{
			Args: []any{boolToInt(to), id, boolToInt(from)},
		}); err != nil {
			return err
		}
		changed = conn.Changes() == 1
		return nil
	})
	return changed, err
}

func scanTicket(stmt *sqlite.Stmt) domain.Ticket {
	return domain.Ticket{
		ID:          stmt.ColumnInt64(0),
		UserID:      stmt.ColumnInt64(1),
		DisplayName: stmt.ColumnText(2),
		Handle:      stmt.ColumnText(3),
		Message:     stmt.ColumnText(4),
		Answered:    stmt.ColumnInt64(5) != 0,
		CreatedAt:   fromNanos(stmt.ColumnInt64(6)),
	}
}
