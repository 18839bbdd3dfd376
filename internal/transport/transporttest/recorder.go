// Package transporttest provides an in-memory transport for tests.
package transporttest

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/transport"
)

// ErrUnreachable is returned for recipients marked with FailFor.
var ErrUnreachable = errors.New("transporttest: recipient unreachable")

// Sent is one recorded delivery.
type Sent struct {
	RecipientID int64
	Message     transport.Message
	Media       *domain.MediaRef
}

// Recorder records every outbound message.
type Recorder struct {
	mu      sync.Mutex
	sent    []Sent
	failFor map[int64]bool
}

var _ transport.Transport = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{failFor: make(map[int64]bool)}
}

// FailFor makes deliveries to recipientID fail until cleared.
func (r *Recorder) FailFor(recipientID int64, fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFor[recipientID] = fail
}

func (r *Recorder) SendMessage(_ context.Context, recipientID int64, msg transport.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[recipientID] {
		return ErrUnreachable
	}
	r.sent = append(r.sent, Sent{RecipientID: recipientID, Message: msg})
	return nil
}

func (r *Recorder) SendMediaEcho(_ context.Context, recipientID int64, media domain.MediaRef, caption string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[recipientID] {
		return ErrUnreachable
	}
	r.sent = append(r.sent, Sent{RecipientID: recipientID, Message: transport.Text(caption), Media: &media})
	return nil
}

// To returns deliveries to one recipient in send order.
func (r *Recorder) To(recipientID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.RecipientID == recipientID {
			out = append(out, s)
		}
	}
	return out
}

// All returns every delivery in send order.
func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Reset forgets recorded deliveries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
