package sqlitestore

import (
	"context"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/persistence"
)

type eventRepository struct {
	db *persistence.SQLite
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	createdAt := nowNanos()
	var kind, fileID any
	if event.Media != nil {
		kind = string(event.Media.Kind)
		fileID = event.Media.FileID
	}
	return withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO events (title, description, prize, schedule, media_kind, media_file_id, creator_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{event.Title, event.Description, event.Prize, event.Schedule, kind, fileID, event.CreatorID, createdAt},
		})
		if err != nil {
			return err
		}
		event.ID = conn.LastInsertRowID()
		event.CreatedAt = fromNanos(createdAt)
		return nil
	})
}

func (r *eventRepository) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	var events []domain.Event
	err := withConn(ctx, r.db, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT id, title, description, prize, schedule, media_kind, media_file_id, creator_id, created_at
			FROM events ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, &sqlitex.ExecOptions{
			Args: []any{limit, offset},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				event := domain.Event{
					ID:          stmt.ColumnInt64(0),
					Title:       stmt.ColumnText(1),
					Description: stmt.ColumnText(2),
					Prize:       stmt.ColumnText(3),
					Schedule:    stmt.ColumnText(4),
					CreatorID:   stmt.ColumnInt64(7),
					CreatedAt:   fromNanos(stmt.ColumnInt64(8)),
				}
				if kind, fileID := stmt.ColumnText(5), stmt.ColumnText(6); kind != "" && fileID != "" {
					event.Media = &domain.MediaRef{Kind: domain.MediaKind(kind), FileID: fileID}
				}
				events = append(events, event)
				return nil
			},
		})
	})
	return events, err
}
