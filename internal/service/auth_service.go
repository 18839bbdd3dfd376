package service

import (
	"context"
	"errors"

	"github.com/spec-kit/relay-desk/internal/auth"
	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/repository"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// AuthService issues console tokens to top-rank operators.
type AuthService struct {
	users        repository.UserRepository
	tokenMgr     *auth.TokenManager
	passwordHash string
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:        deps.UserRepo,
		tokenMgr:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		passwordHash: cfg.Auth.OperatorPasswordHash,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// LoginOperator checks the shared console password and the user's rank.
func (s *AuthService) LoginOperator(ctx context.Context, userID int64, password string) (*domain.User, *domain.Token, string, error) {
	if s.passwordHash == "" {
		return nil, nil, "", apperrors.NewUnauthorized("console login disabled")
	}
	if err := auth.ComparePassword(s.passwordHash, password); err != nil {
		return nil, nil, "", apperrors.NewUnauthorized("invalid credentials")
	}
	return s.IssueOperatorToken(ctx, userID)
}

// IssueOperatorToken signs a token for a top-rank user without a password.
// Only trusted callers with store access use it directly.
func (s *AuthService) IssueOperatorToken(ctx context.Context, userID int64) (*domain.User, *domain.Token, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, "", apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, nil, "", apperrors.NewStoreError(err)
	}
	if user.Rank != domain.TopRank {
		return nil, nil, "", apperrors.NewForbidden()
	}
	meta, token, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeOperator)
	if err != nil {
		return nil, nil, "", apperrors.NewInternalError(err)
	}
	return user, meta, token, nil
}
