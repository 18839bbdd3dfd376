package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/conversation"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/repository"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// RedemptionService exchanges reward codes for balance, at most once per
// (user, code). The store's unique key on redemptions is the arbiter.
type RedemptionService struct {
	users      repository.UserRepository
	rewards    repository.RewardRepository
	tracker    *conversation.Tracker
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RedemptionDependencies bundles collaborators for the redemption service.
type RedemptionDependencies struct {
	UserRepo   repository.UserRepository
	RewardRepo repository.RewardRepository
	Tracker    *conversation.Tracker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// RedemptionResult is a successful redemption.
type RedemptionResult struct {
	Code    string
	Reward  int64
	Balance int64
}

// NewRedemptionService constructs the service.
func NewRedemptionService(deps RedemptionDependencies) *RedemptionService {
	return &RedemptionService{
		users:      deps.UserRepo,
		rewards:    deps.RewardRepo,
		tracker:    deps.Tracker,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// BeginRedemption makes the user's next message a code submission.
// Every rank may redeem; blocked users get the uniform denial.
func (s *RedemptionService) BeginRedemption(ctx context.Context, userID int64, profile domain.Profile) error {
	user, err := ensureUser(ctx, s.users, userID, profile)
	if err != nil {
		return err
	}
	if user.Blocked {
		return apperrors.NewForbidden()
	}
	if err := s.tracker.SetState(ctx, userID, conversation.State{Mode: conversation.ModeAwaitingRedemptionCode}); err != nil {
		return apperrors.NewStoreError(err)
	}
	return nil
}

// Redeem credits the code's reward to the user exactly once.
func (s *RedemptionService) Redeem(ctx context.Context, userID int64, profile domain.Profile, codeRaw string) (*RedemptionResult, error) {
	code := domain.NormalizeCode(codeRaw)
	if code == "" {
		return nil, apperrors.NewInvalidCode(code)
	}

	rewardCode, err := s.rewards.GetCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInvalidCode(code)
	}
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}

	user, err := ensureUser(ctx, s.users, userID, profile)
	if err != nil {
		return nil, err
	}
	if user.Blocked {
		return nil, apperrors.NewForbidden()
	}

	redeemed, err := s.rewards.HasRedeemed(ctx, userID, code)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	if redeemed {
		return nil, alreadyRedeemed(code)
	}

	balance, err := s.rewards.Redeem(ctx, userID, code, rewardCode.Reward)
	if errors.Is(err, repository.ErrAlreadyRedeemed) {
		return nil, alreadyRedeemed(code)
	}
	if err != nil {
		return nil, mapStoreError(err, "user")
	}

	s.logger.Info("code redeemed",
		zap.Int64("user_id", userID),
		zap.String("code", code),
		zap.Int64("reward", rewardCode.Reward),
	)
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventCodeRedeemed, userID, events.CodeRedeemedPayload{
		Code:    code,
		Reward:  rewardCode.Reward,
		Balance: balance,
	}))
	return &RedemptionResult{Code: code, Reward: rewardCode.Reward, Balance: balance}, nil
}

func alreadyRedeemed(code string) error {
	return apperrors.NewAlreadyDone(apperrors.CodeAlreadyRedeemed, "code already redeemed", map[string]any{"code": code})
}
