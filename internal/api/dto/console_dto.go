package dto

import (
	"time"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// CreateCodeRequest payload for POST /admin/codes.
type CreateCodeRequest struct {
	Code   string `json:"code"`
	Reward int64  `json:"reward"`
}

// CodeResponse is a created reward code.
type CodeResponse struct {
	Code   string `json:"code"`
	Reward int64  `json:"reward"`
}

// EventResponse is a public event.
type EventResponse struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Prize       string       `json:"prize"`
	Schedule    string       `json:"schedule"`
	Media       *MediaResult `json:"media,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// MediaResult names a provider-hosted attachment.
type MediaResult struct {
	Kind   domain.MediaKind `json:"kind"`
	FileID string           `json:"file_id"`
}

// NewEventResponse maps a domain event.
func NewEventResponse(e *domain.Event) EventResponse {
	resp := EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Prize:       e.Prize,
		Schedule:    e.Schedule,
		CreatedAt:   e.CreatedAt,
	}
	if e.Media != nil {
		resp.Media = &MediaResult{Kind: e.Media.Kind, FileID: e.Media.FileID}
	}
	return resp
}
