package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// EventRepository stores console-created events.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	List(ctx context.Context, limit, offset int) ([]domain.Event, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository builds repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	const query = `
        INSERT INTO events (title, description, prize, schedule, media_kind, media_file_id, creator_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	var kind, fileID *string
	if event.Media != nil {
		k := string(event.Media.Kind)
		kind = &k
		fileID = &event.Media.FileID
	}
	return mapPgError(r.pool.QueryRow(ctx, query,
		event.Title,
		event.Description,
		event.Prize,
		event.Schedule,
		kind,
		fileID,
		event.CreatorID,
	).Scan(&event.ID, &event.CreatedAt))
}

func (r *eventRepository) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const query = `
        SELECT id, title, description, prize, schedule, media_kind, media_file_id, creator_id, created_at
        FROM events ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Event
	for rows.Next() {
		var (
			event  domain.Event
			kind   *string
			fileID *string
		)
		if err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.Prize,
			&event.Schedule,
			&kind,
			&fileID,
			&event.CreatorID,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		if kind != nil && fileID != nil {
			event.Media = &domain.MediaRef{Kind: domain.MediaKind(*kind), FileID: *fileID}
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
