package conversation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Tracker resolves and transitions conversation state. Callers serialize
// access per user; the tracker itself holds no per-user locks.
type Tracker struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewTracker builds a tracker. A zero ttl keeps pending flows forever.
func NewTracker(store Store, ttl time.Duration, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, ttl: ttl, now: time.Now, logger: logger}
}

// WithClock overrides the time source used for stamping and expiry.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// GetState returns the user's state, Idle when unknown or expired.
func (t *Tracker) GetState(ctx context.Context, userID int64) (State, error) {
	state, ok, err := t.store.Load(ctx, userID)
	if err != nil {
		return Idle(), err
	}
	if !ok || state.IsIdle() {
		return Idle(), nil
	}
	if t.expired(state) {
		t.logger.Debug("conversation state expired",
			zap.Int64("user_id", userID),
			zap.String("mode", string(state.Mode)),
			zap.Time("updated_at", state.UpdatedAt),
		)
		if err := t.store.Delete(ctx, userID); err != nil {
			return Idle(), err
		}
		return Idle(), nil
	}
	return state, nil
}

// SetState replaces the user's state. Setting Idle clears it.
func (t *Tracker) SetState(ctx context.Context, userID int64, state State) error {
	if state.IsIdle() {
		return t.ClearState(ctx, userID)
	}
	state.UpdatedAt = t.now().UTC()
	return t.store.Save(ctx, userID, state, t.ttl)
}

// ClearState returns the user to Idle.
func (t *Tracker) ClearState(ctx context.Context, userID int64) error {
	return t.store.Delete(ctx, userID)
}

func (t *Tracker) expired(state State) bool {
	if t.ttl <= 0 || state.UpdatedAt.IsZero() {
		return false
	}
	return t.now().Sub(state.UpdatedAt) > t.ttl
}
