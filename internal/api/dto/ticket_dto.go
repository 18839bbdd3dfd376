package dto

import (
	"time"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// TicketResponse is a relayed ticket.
type TicketResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	Message     string    `json:"message"`
	Answered    bool      `json:"answered"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReplyRequest payload for POST /admin/tickets/:id/reply.
type ReplyRequest struct {
	Text string `json:"text"`
}

// PageMeta describes one page of a listing.
type PageMeta struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		DisplayName: t.DisplayName,
		Handle:      t.Handle,
		Message:     t.Message,
		Answered:    t.Answered,
		CreatedAt:   t.CreatedAt,
	}
}
