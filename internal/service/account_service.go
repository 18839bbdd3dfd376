package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/repository"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// AccountService registers users and shows their account.
type AccountService struct {
	users       repository.UserRepository
	operatorIDs map[int64]struct{}
	logger      *zap.Logger
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	UserRepo    repository.UserRepository
	OperatorIDs []int64
	Logger      *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	ids := make(map[int64]struct{}, len(deps.OperatorIDs))
	for _, id := range deps.OperatorIDs {
		ids[id] = struct{}{}
	}
	return &AccountService{users: deps.UserRepo, operatorIDs: ids, logger: loggerOrNop(deps.Logger)}
}

// Start registers the user as a Guest. Configured operator ids are promoted
// to the top rank.
func (s *AccountService) Start(ctx context.Context, userID int64, profile domain.Profile) (*domain.User, error) {
	user, err := ensureUser(ctx, s.users, userID, profile)
	if err != nil {
		return nil, err
	}
	if _, ok := s.operatorIDs[userID]; !ok || user.Rank == domain.TopRank {
		return user, nil
	}
	if err := s.users.UpdateRank(ctx, userID, domain.TopRank); err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	user.Rank = domain.TopRank
	s.logger.Info("operator promoted", zap.Int64("user_id", userID))
	return user, nil
}

// Account returns the stored user.
func (s *AccountService) Account(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "user")
	}
	return user, nil
}
