package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/service"
)

// ErrQueueFull is returned by Publish when the backlog is saturated.
var ErrQueueFull = errors.New("notification queue full")

const handlerTimeout = 30 * time.Second

// NotificationWorker is a Dispatcher that queues published events and
// delivers them to the wrapped dispatcher on its own goroutine, so slow
// transport calls never hold up the publishing flow.
type NotificationWorker struct {
	inner  events.Dispatcher
	queue  chan events.Event
	logger *zap.Logger
	done   chan struct{}
	once   sync.Once
}

// NewNotificationWorker wraps inner with a queue of the given size.
func NewNotificationWorker(inner events.Dispatcher, buffer int, logger *zap.Logger) *NotificationWorker {
	if buffer <= 0 {
		buffer = 128
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		inner:  inner,
		queue:  make(chan events.Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish enqueues the event without blocking.
func (w *NotificationWorker) Publish(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("notification dropped", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
		return ErrQueueFull
	}
}

// Subscribe registers on the wrapped dispatcher.
func (w *NotificationWorker) Subscribe(eventType events.EventType, handler events.EventHandler) {
	w.inner.Subscribe(eventType, handler)
}

// Run delivers queued events until ctx is done, then drains the backlog.
func (w *NotificationWorker) Run(ctx context.Context) {
	defer w.once.Do(func() { close(w.done) })
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event := <-w.queue:
					w.deliver(event)
				default:
					return
				}
			}
		case event := <-w.queue:
			w.deliver(event)
		}
	}
}

// Done is closed once Run has returned.
func (w *NotificationWorker) Done() <-chan struct{} {
	return w.done
}

func (w *NotificationWorker) deliver(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := w.inner.Publish(ctx, event); err != nil {
		w.logger.Error("notification delivery failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}

// StartNotificationWorker registers notification handlers and starts the
// delivery loop.
func StartNotificationWorker(ctx context.Context, w *NotificationWorker, notificationService *service.NotificationService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	go w.Run(ctx)
}
