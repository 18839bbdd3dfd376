package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/repository"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// mapStoreError turns repository sentinels into domain errors.
func mapStoreError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrBalanceOverflow):
		return apperrors.NewValidationError("balance out of range", nil)
	default:
		return apperrors.NewStoreError(err)
	}
}

// requireTopRank loads the actor and fails with the uniform denial unless
// they hold the top rank. Unknown actors are denied the same way.
func requireTopRank(ctx context.Context, users repository.UserRepository, actorID int64) (*domain.User, error) {
	actor, err := users.GetByID(ctx, actorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewForbidden()
	}
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	if actor.Rank != domain.TopRank {
		return nil, apperrors.NewForbidden()
	}
	return actor, nil
}

func ensureUser(ctx context.Context, users repository.UserRepository, userID int64, profile domain.Profile) (*domain.User, error) {
	user, err := users.Ensure(ctx, &domain.User{
		ID:          userID,
		DisplayName: profile.DisplayName,
		Handle:      profile.Handle,
		Rank:        domain.RankGuest,
	})
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return user, nil
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
