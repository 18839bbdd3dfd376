// Package conversation tracks the single multi-step flow each user is in.
package conversation

import (
	"context"
	"time"
)

// Mode is the active flow for one user.
type Mode string

const (
	ModeIdle                   Mode = "idle"
	ModeAwaitingTicketText     Mode = "awaiting_ticket_text"
	ModeAwaitingRedemptionCode Mode = "awaiting_redemption_code"
	ModeAwaitingOperatorReply  Mode = "awaiting_operator_reply"
	ModeAwaitingEventDetails   Mode = "awaiting_event_details"
)

// State is the per-user mode plus its session variables.
type State struct {
	Mode             Mode
	SelectedTicketID int64
	Page             int
	UpdatedAt        time.Time
}

// Idle returns the state reported for unknown users.
func Idle() State {
	return State{Mode: ModeIdle}
}

// IsIdle reports whether no flow is pending.
func (s State) IsIdle() bool {
	return s.Mode == "" || s.Mode == ModeIdle
}

// HasSelectedTicket reports whether an operator reply has a target.
func (s State) HasSelectedTicket() bool {
	return s.Mode == ModeAwaitingOperatorReply && s.SelectedTicketID > 0
}

// Store persists states keyed by user id. Load reports false for unknown users.
type Store interface {
	Load(ctx context.Context, userID int64) (State, bool, error)
	Save(ctx context.Context, userID int64, state State, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}
