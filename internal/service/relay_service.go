package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/conversation"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/messages"
	"github.com/spec-kit/relay-desk/internal/repository"
	"github.com/spec-kit/relay-desk/internal/transport"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// RelayService captures tickets from end-users and routes operator replies
// back to the ticket's sender. The ticket row is the only correlation source.
type RelayService struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	tracker    *conversation.Tracker
	transport  transport.Transport
	catalog    *messages.Catalog
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RelayDependencies bundles collaborators for the relay service.
type RelayDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Tracker    *conversation.Tracker
	Transport  transport.Transport
	Catalog    *messages.Catalog
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ReplyResult describes a delivered reply.
type ReplyResult struct {
	Ticket domain.Ticket
}

// NewRelayService constructs the service.
func NewRelayService(deps RelayDependencies) *RelayService {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = messages.Default()
	}
	return &RelayService{
		users:      deps.UserRepo,
		tickets:    deps.TicketRepo,
		tracker:    deps.Tracker,
		transport:  deps.Transport,
		catalog:    catalog,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// OpenContact starts the contact flow: the sender's next message becomes a ticket.
func (s *RelayService) OpenContact(ctx context.Context, senderID int64, profile domain.Profile) error {
	user, err := ensureUser(ctx, s.users, senderID, profile)
	if err != nil {
		return err
	}
	if user.IsOperator() {
		return apperrors.NewOperatorSender()
	}
	if user.Blocked {
		return apperrors.NewForbidden()
	}
	return s.setState(ctx, senderID, conversation.State{Mode: conversation.ModeAwaitingTicketText})
}

// SubmitTicket stores content as an unanswered ticket.
func (s *RelayService) SubmitTicket(ctx context.Context, senderID int64, profile domain.Profile, content domain.Content) (*domain.Ticket, error) {
	if content.IsEmpty() {
		return nil, apperrors.NewValidationError("ticket message is empty", nil)
	}
	user, err := ensureUser(ctx, s.users, senderID, profile)
	if err != nil {
		return nil, err
	}
	if user.IsOperator() {
		return nil, apperrors.NewOperatorSender()
	}
	if user.Blocked {
		return nil, apperrors.NewForbidden()
	}

	ticket := &domain.Ticket{
		UserID:      senderID,
		DisplayName: profile.DisplayName,
		Handle:      profile.Handle,
		Message:     content.String(),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewStoreError(err)
	}

	s.logger.Info("ticket submitted", zap.Int64("ticket_id", ticket.ID), zap.Int64("user_id", senderID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketSubmitted, senderID, events.TicketSubmittedPayload{
		Ticket: *ticket,
		Media:  content.Media,
	}))
	return ticket, nil
}

// ListOpenTickets returns unanswered tickets, newest first.
func (s *RelayService) ListOpenTickets(ctx context.Context, page int) (Page[domain.Ticket], error) {
	limit, offset, err := pageWindow(page)
	if err != nil {
		return Page[domain.Ticket]{}, err
	}
	open := false
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{Answered: &open, Limit: limit, Offset: offset})
	if err != nil {
		return Page[domain.Ticket]{}, apperrors.NewStoreError(err)
	}
	return newPage(tickets, page), nil
}

// GetTicket fetches one ticket.
func (s *RelayService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err, "ticket")
	}
	return ticket, nil
}

// SelectTicketForReply points the operator's next message at ticketID.
func (s *RelayService) SelectTicketForReply(ctx context.Context, operatorID, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Answered {
		return nil, apperrors.NewAlreadyDone(apperrors.CodeTicketAnswered, "ticket already answered",
			map[string]any{"ticket_id": ticketID})
	}
	if err := s.setState(ctx, operatorID, conversation.State{
		Mode:             conversation.ModeAwaitingOperatorReply,
		SelectedTicketID: ticketID,
	}); err != nil {
		return nil, err
	}
	return ticket, nil
}

// SubmitReply answers the ticket selected in the operator's conversation
// state. The state is cleared whatever the outcome.
func (s *RelayService) SubmitReply(ctx context.Context, operatorID int64, content domain.Content) (*ReplyResult, error) {
	state, err := s.tracker.GetState(ctx, operatorID)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	defer s.clearState(ctx, operatorID)

	if !state.HasSelectedTicket() {
		return nil, apperrors.NewNoTicketSelected()
	}
	return s.reply(ctx, operatorID, state.SelectedTicketID, content)
}

// ReplyToTicket answers a ticket by id without touching conversation state.
func (s *RelayService) ReplyToTicket(ctx context.Context, operatorID, ticketID int64, content domain.Content) (*ReplyResult, error) {
	return s.reply(ctx, operatorID, ticketID, content)
}

func (s *RelayService) reply(ctx context.Context, operatorID, ticketID int64, content domain.Content) (*ReplyResult, error) {
	if content.IsEmpty() {
		return nil, apperrors.NewValidationError("reply is empty", nil)
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.tickets.TransitionAnswered(ctx, ticketID, false, true)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	if !claimed {
		return nil, apperrors.NewAlreadyDone(apperrors.CodeTicketAnswered, "ticket already answered",
			map[string]any{"ticket_id": ticketID})
	}

	if err := s.deliverReply(ctx, ticket, content); err != nil {
		if _, releaseErr := s.tickets.TransitionAnswered(ctx, ticketID, true, false); releaseErr != nil {
			s.logger.Error("release ticket claim failed",
				zap.Int64("ticket_id", ticketID),
				zap.Error(releaseErr),
			)
		}
		s.logger.Error("reply delivery failed",
			zap.Int64("ticket_id", ticketID),
			zap.Int64("recipient_id", ticket.UserID),
			zap.Error(err),
		)
		return nil, apperrors.NewTransportError(err)
	}

	ticket.Answered = true
	s.logger.Info("ticket answered", zap.Int64("ticket_id", ticketID), zap.Int64("operator_id", operatorID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketAnswered, operatorID, events.TicketAnsweredPayload{
		TicketID:   ticketID,
		UserID:     ticket.UserID,
		OperatorID: operatorID,
	}))
	return &ReplyResult{Ticket: *ticket}, nil
}

func (s *RelayService) deliverReply(ctx context.Context, ticket *domain.Ticket, content domain.Content) error {
	if content.Media != nil {
		text := s.catalog.Format(messages.ReplyToUser, "original", ticket.Message, "reply", content.Media.Caption)
		return s.transport.SendMediaEcho(ctx, ticket.UserID, *content.Media, text)
	}
	text := s.catalog.Format(messages.ReplyToUser, "original", ticket.Message, "reply", content.String())
	return s.transport.SendMessage(ctx, ticket.UserID, transport.Text(text))
}

func (s *RelayService) setState(ctx context.Context, userID int64, state conversation.State) error {
	if err := s.tracker.SetState(ctx, userID, state); err != nil {
		return apperrors.NewStoreError(err)
	}
	return nil
}

func (s *RelayService) clearState(ctx context.Context, userID int64) {
	if err := s.tracker.ClearState(ctx, userID); err != nil {
		s.logger.Warn("clear conversation state failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
