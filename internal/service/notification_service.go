package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/messages"
	"github.com/spec-kit/relay-desk/internal/repository"
	"github.com/spec-kit/relay-desk/internal/transport"
)

// NotificationService forwards domain events to operators.
type NotificationService struct {
	dispatcher  events.Dispatcher
	transport   transport.Transport
	users       repository.UserRepository
	catalog     *messages.Catalog
	operatorIDs []int64
	logger      *zap.Logger
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	Transport   transport.Transport
	// UserRepo, when set, adds every stored top-rank user to OperatorIDs.
	UserRepo    repository.UserRepository
	Catalog     *messages.Catalog
	OperatorIDs []int64
	Logger      *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = messages.Default()
	}
	return &NotificationService{
		dispatcher:  deps.Dispatcher,
		transport:   deps.Transport,
		users:       deps.UserRepo,
		catalog:     catalog,
		operatorIDs: deps.OperatorIDs,
		logger:      loggerOrNop(deps.Logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketSubmitted, n.handleTicketSubmitted)
	n.dispatcher.Subscribe(events.EventTicketAnswered, n.logEvent)
	n.dispatcher.Subscribe(events.EventCodeCreated, n.logEvent)
	n.dispatcher.Subscribe(events.EventCodeRedeemed, n.logEvent)
	n.dispatcher.Subscribe(events.EventUserUpdated, n.logEvent)
	n.dispatcher.Subscribe(events.EventEventCreated, n.logEvent)
}

// handleTicketSubmitted sends the ticket to every operator with a button
// that selects it for reply.
func (n *NotificationService) handleTicketSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSubmittedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ticket := payload.Ticket
	text := n.catalog.Format(messages.NewTicket,
		"id", ticket.ID,
		"sender", ticket.Sender().Label(),
		"message", ticket.Message,
	)
	keyboard := transport.Keyboard{{{
		Label: "#" + strconv.FormatInt(ticket.ID, 10),
		Data:  transport.CallbackData("ticket", ticket.ID),
	}}}

	var errs []error
	for _, operatorID := range n.recipients(ctx) {
		var err error
		if payload.Media != nil {
			err = n.transport.SendMediaEcho(ctx, operatorID, *payload.Media, text)
			if err == nil {
				err = n.transport.SendMessage(ctx, operatorID, transport.Message{
					Text:     n.catalog.Format(messages.TicketSelect, "id", ticket.ID),
					Keyboard: keyboard,
				})
			}
		} else {
			err = n.transport.SendMessage(ctx, operatorID, transport.Message{Text: text, Keyboard: keyboard})
		}
		if err != nil {
			n.logger.Warn("operator notification failed",
				zap.Int64("operator_id", operatorID),
				zap.Int64("ticket_id", ticket.ID),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// recipients merges the configured operators with users promoted to the top
// rank. A failed lookup falls back to the configured list.
func (n *NotificationService) recipients(ctx context.Context) []int64 {
	if n.users == nil {
		return n.operatorIDs
	}
	promoted, err := n.users.ListIDsByRank(ctx, domain.TopRank)
	if err != nil {
		n.logger.Warn("listing top-rank users failed", zap.Error(err))
		return n.operatorIDs
	}
	seen := make(map[int64]struct{}, len(n.operatorIDs)+len(promoted))
	ids := make([]int64, 0, len(n.operatorIDs)+len(promoted))
	for _, id := range append(append([]int64{}, n.operatorIDs...), promoted...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("actor_id", event.ActorID),
		zap.Any("payload", event.Payload),
	)
	return nil
}
