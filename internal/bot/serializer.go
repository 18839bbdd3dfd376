package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/transport"
)

// Serializer runs updates strictly in arrival order per sender while
// different senders proceed concurrently. Each sender with pending updates
// owns one drain goroutine, which exits once its queue is empty.
type Serializer struct {
	handle func(context.Context, transport.Update)
	logger *zap.Logger

	mu     sync.Mutex
	queues map[int64][]transport.Update
	wg     sync.WaitGroup
}

// NewSerializer wraps handle.
func NewSerializer(handle func(context.Context, transport.Update), logger *zap.Logger) *Serializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serializer{handle: handle, logger: logger, queues: make(map[int64][]transport.Update)}
}

// Submit enqueues an update behind any pending ones from the same sender.
func (s *Serializer) Submit(ctx context.Context, update transport.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pending, active := s.queues[update.SenderID]; active {
		s.queues[update.SenderID] = append(pending, update)
		return
	}
	s.queues[update.SenderID] = []transport.Update{update}
	s.wg.Add(1)
	go s.drain(ctx, update.SenderID)
}

// Wait blocks until every queued update has been handled.
func (s *Serializer) Wait() {
	s.wg.Wait()
}

// Active reports how many senders currently have a drain goroutine.
func (s *Serializer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

func (s *Serializer) drain(ctx context.Context, senderID int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		pending := s.queues[senderID]
		if len(pending) == 0 {
			delete(s.queues, senderID)
			s.mu.Unlock()
			return
		}
		next := pending[0]
		s.queues[senderID] = pending[1:]
		s.mu.Unlock()

		s.run(ctx, next)
	}
}

func (s *Serializer) run(ctx context.Context, update transport.Update) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("update handler panicked",
				zap.Int64("sender_id", update.SenderID),
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r),
			)
		}
	}()
	s.handle(ctx, update)
}
