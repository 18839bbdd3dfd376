package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/conversation"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/repository"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// ConsoleService exposes operator actions. Every method taking an actorID
// checks the actor holds the top rank before reading or mutating anything.
type ConsoleService struct {
	users      repository.UserRepository
	rewards    repository.RewardRepository
	events     repository.EventRepository
	relay      *RelayService
	tracker    *conversation.Tracker
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ConsoleDependencies bundles collaborators for the console service.
type ConsoleDependencies struct {
	UserRepo   repository.UserRepository
	RewardRepo repository.RewardRepository
	EventRepo  repository.EventRepository
	Relay      *RelayService
	Tracker    *conversation.Tracker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewConsoleService constructs the service.
func NewConsoleService(deps ConsoleDependencies) *ConsoleService {
	return &ConsoleService{
		users:      deps.UserRepo,
		rewards:    deps.RewardRepo,
		events:     deps.EventRepo,
		relay:      deps.Relay,
		tracker:    deps.Tracker,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// ListTickets pages through open tickets.
func (s *ConsoleService) ListTickets(ctx context.Context, actorID int64, page int) (Page[domain.Ticket], error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return Page[domain.Ticket]{}, err
	}
	return s.relay.ListOpenTickets(ctx, page)
}

// GetTicket returns a ticket, answered or not.
func (s *ConsoleService) GetTicket(ctx context.Context, actorID, ticketID int64) (*domain.Ticket, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	return s.relay.GetTicket(ctx, ticketID)
}

// SelectTicket arms the actor's reply flow for ticketID.
func (s *ConsoleService) SelectTicket(ctx context.Context, actorID, ticketID int64) (*domain.Ticket, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	return s.relay.SelectTicketForReply(ctx, actorID, ticketID)
}

// SubmitReply sends the actor's pending reply.
func (s *ConsoleService) SubmitReply(ctx context.Context, actorID int64, content domain.Content) (*ReplyResult, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		s.clearState(ctx, actorID)
		return nil, err
	}
	return s.relay.SubmitReply(ctx, actorID, content)
}

// ReplyToTicket answers a ticket directly by id.
func (s *ConsoleService) ReplyToTicket(ctx context.Context, actorID, ticketID int64, content domain.Content) (*ReplyResult, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	return s.relay.ReplyToTicket(ctx, actorID, ticketID, content)
}

// CreateCodeFromSpec creates a code from "<code> | <amount>".
func (s *ConsoleService) CreateCodeFromSpec(ctx context.Context, actorID int64, spec string) (*domain.RewardCode, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	code, reward, err := ParseCodeSpec(spec)
	if err != nil {
		return nil, err
	}
	return s.createCode(ctx, actorID, code, reward)
}

// CreateCode creates a reward code.
func (s *ConsoleService) CreateCode(ctx context.Context, actorID int64, code string, reward int64) (*domain.RewardCode, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	code = domain.NormalizeCode(code)
	if err := ValidateRewardCode(code, reward); err != nil {
		return nil, err
	}
	return s.createCode(ctx, actorID, code, reward)
}

func (s *ConsoleService) createCode(ctx context.Context, actorID int64, code string, reward int64) (*domain.RewardCode, error) {
	rewardCode := &domain.RewardCode{Code: code, Reward: reward}
	if err := s.rewards.CreateCode(ctx, rewardCode); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("code already exists", map[string]any{"code": code})
		}
		return nil, mapStoreError(err, "code")
	}
	s.logger.Info("reward code created", zap.String("code", code), zap.Int64("reward", reward), zap.Int64("actor_id", actorID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventCodeCreated, actorID, events.CodeCreatedPayload{
		Code:   code,
		Reward: reward,
	}))
	return rewardCode, nil
}

// ListUsers pages through registered users.
func (s *ConsoleService) ListUsers(ctx context.Context, actorID int64, page int) (Page[domain.User], error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return Page[domain.User]{}, err
	}
	limit, offset, err := pageWindow(page)
	if err != nil {
		return Page[domain.User]{}, err
	}
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return Page[domain.User]{}, apperrors.NewStoreError(err)
	}
	return newPage(users, page), nil
}

// SetRank changes a user's tier.
func (s *ConsoleService) SetRank(ctx context.Context, actorID, userID int64, rank domain.Rank) (*domain.User, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	if !rank.Valid() {
		return nil, apperrors.NewValidationError("unknown rank", map[string]any{"rank": string(rank)})
	}
	if err := s.users.UpdateRank(ctx, userID, rank); err != nil {
		return nil, mapStoreError(err, "user")
	}
	return s.userUpdated(ctx, actorID, userID, "rank")
}

// AdjustBalance adds delta to a user's balance, never going below zero.
func (s *ConsoleService) AdjustBalance(ctx context.Context, actorID, userID, delta int64) (*domain.User, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, apperrors.NewValidationError("balance change must not be zero", nil)
	}
	if _, err := s.users.AdjustBalance(ctx, userID, delta, true); err != nil {
		return nil, mapStoreError(err, "user")
	}
	return s.userUpdated(ctx, actorID, userID, "balance")
}

// ToggleBlock flips a user's blocked flag.
func (s *ConsoleService) ToggleBlock(ctx context.Context, actorID, userID int64) (*domain.User, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "user")
	}
	return s.setBlocked(ctx, actorID, userID, !user.Blocked)
}

// SetBlocked sets a user's blocked flag.
func (s *ConsoleService) SetBlocked(ctx context.Context, actorID, userID int64, blocked bool) (*domain.User, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	return s.setBlocked(ctx, actorID, userID, blocked)
}

func (s *ConsoleService) setBlocked(ctx context.Context, actorID, userID int64, blocked bool) (*domain.User, error) {
	if err := s.users.SetBlocked(ctx, userID, blocked); err != nil {
		return nil, mapStoreError(err, "user")
	}
	return s.userUpdated(ctx, actorID, userID, "blocked")
}

func (s *ConsoleService) userUpdated(ctx context.Context, actorID, userID int64, change string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "user")
	}
	s.logger.Info("user updated", zap.Int64("user_id", userID), zap.String("change", change), zap.Int64("actor_id", actorID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventUserUpdated, actorID, events.UserUpdatedPayload{
		UserID:  user.ID,
		Rank:    user.Rank,
		Balance: user.Balance,
		Blocked: user.Blocked,
		Change:  change,
	}))
	return user, nil
}

// BeginEvent makes the actor's next message an event definition.
func (s *ConsoleService) BeginEvent(ctx context.Context, actorID int64) error {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return err
	}
	if err := s.tracker.SetState(ctx, actorID, conversation.State{Mode: conversation.ModeAwaitingEventDetails}); err != nil {
		return apperrors.NewStoreError(err)
	}
	return nil
}

// CreateEvent stores an event from "title | description | prize | when",
// taken from the text or from the caption of attached media.
func (s *ConsoleService) CreateEvent(ctx context.Context, actorID int64, content domain.Content) (*domain.Event, error) {
	if _, err := requireTopRank(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	raw := content.Text
	if content.Media != nil {
		raw = content.Media.Caption
	}
	event, err := ParseEventSpec(raw)
	if err != nil {
		return nil, err
	}
	if content.Media != nil {
		event.Media = &domain.MediaRef{Kind: content.Media.Kind, FileID: content.Media.FileID}
	}
	event.CreatorID = actorID

	if err := s.events.Create(ctx, event); err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	s.logger.Info("event created", zap.Int64("event_id", event.ID), zap.Int64("actor_id", actorID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventEventCreated, actorID, events.EventCreatedPayload{Event: *event}))
	return event, nil
}

// ListEvents pages through events, newest first. Open to everyone.
func (s *ConsoleService) ListEvents(ctx context.Context, page int) (Page[domain.Event], error) {
	limit, offset, err := pageWindow(page)
	if err != nil {
		return Page[domain.Event]{}, err
	}
	list, err := s.events.List(ctx, limit, offset)
	if err != nil {
		return Page[domain.Event]{}, apperrors.NewStoreError(err)
	}
	return newPage(list, page), nil
}

func (s *ConsoleService) clearState(ctx context.Context, userID int64) {
	if err := s.tracker.ClearState(ctx, userID); err != nil {
		s.logger.Warn("clear conversation state failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// ParseCodeSpec splits "<code> | <amount>".
func ParseCodeSpec(spec string) (string, int64, error) {
	parts := strings.Split(spec, "|")
	if len(parts) != 2 {
		return "", 0, apperrors.NewValidationError("expected <code> | <amount>", map[string]any{"input": spec})
	}
	code := domain.NormalizeCode(parts[0])
	reward, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return "", 0, apperrors.NewValidationError("reward must be a number", map[string]any{"reward": strings.TrimSpace(parts[1])})
	}
	if err := ValidateRewardCode(code, reward); err != nil {
		return "", 0, err
	}
	return code, reward, nil
}

// ValidateRewardCode checks a normalized code and its reward.
func ValidateRewardCode(code string, reward int64) error {
	if code == "" || strings.ContainsAny(code, " \t\n|") {
		return apperrors.NewValidationError("code must be a single non-empty word", map[string]any{"code": code})
	}
	if reward <= 0 {
		return apperrors.NewValidationError("reward must be positive", map[string]any{"reward": reward})
	}
	return nil
}

// ParseEventSpec splits "title | description | prize | when".
func ParseEventSpec(spec string) (*domain.Event, error) {
	parts := strings.Split(spec, "|")
	if len(parts) != 4 {
		return nil, apperrors.NewValidationError("expected title | description | prize | when", nil)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return nil, apperrors.NewValidationError("event title is required", nil)
	}
	return &domain.Event{
		Title:       parts[0],
		Description: parts[1],
		Prize:       parts[2],
		Schedule:    parts[3],
	}, nil
}
