package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted EventType = "ticket_submitted"
	EventTicketAnswered  EventType = "ticket_answered"
	EventCodeCreated     EventType = "code_created"
	EventCodeRedeemed    EventType = "code_redeemed"
	EventUserUpdated     EventType = "user_updated"
	EventEventCreated    EventType = "event_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, actorID int64, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketSubmittedPayload carries the stored ticket and, for media tickets,
// the original attachment so operators can see it.
type TicketSubmittedPayload struct {
	Ticket domain.Ticket    `json:"ticket"`
	Media  *domain.MediaRef `json:"media,omitempty"`
}

// TicketAnsweredPayload payload.
type TicketAnsweredPayload struct {
	TicketID   int64 `json:"ticket_id"`
	UserID     int64 `json:"user_id"`
	OperatorID int64 `json:"operator_id"`
}

// CodeCreatedPayload payload.
type CodeCreatedPayload struct {
	Code   string `json:"code"`
	Reward int64  `json:"reward"`
}

// CodeRedeemedPayload payload.
type CodeRedeemedPayload struct {
	Code    string `json:"code"`
	Reward  int64  `json:"reward"`
	Balance int64  `json:"balance"`
}

// UserUpdatedPayload describes an administrative change to a user.
type UserUpdatedPayload struct {
	UserID  int64       `json:"user_id"`
	Rank    domain.Rank `json:"rank"`
	Balance int64       `json:"balance"`
	Blocked bool        `json:"blocked"`
	Change  string      `json:"change"`
}

// EventCreatedPayload payload.
type EventCreatedPayload struct {
	Event domain.Event `json:"event"`
}
