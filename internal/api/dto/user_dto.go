package dto

import (
	"time"

	"github.com/spec-kit/relay-desk/internal/domain"
)

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	UserID   int64  `json:"user_id"`
	Password string `json:"password"`
}

// AuthResponse carries an issued bearer token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is a registered chat user.
type UserResponse struct {
	ID          int64       `json:"id"`
	DisplayName string      `json:"display_name"`
	Handle      string      `json:"handle"`
	Rank        domain.Rank `json:"rank"`
	Balance     int64       `json:"balance"`
	Blocked     bool        `json:"blocked"`
	CreatedAt   time.Time   `json:"created_at"`
}

// UpdateUserRequest payload for PATCH /admin/users/:id. Absent fields are
// left unchanged.
type UpdateUserRequest struct {
	Rank         *string `json:"rank"`
	BalanceDelta *int64  `json:"balance_delta"`
	Blocked      *bool   `json:"blocked"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Handle:      u.Handle,
		Rank:        u.Rank,
		Balance:     u.Balance,
		Blocked:     u.Blocked,
		CreatedAt:   u.CreatedAt,
	}
}
