package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/relay-desk/internal/api/dto"
	"github.com/spec-kit/relay-desk/internal/service"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// AuthHandler exposes the operator login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID <= 0 || req.Password == "" {
		return apperrors.NewValidationError("user_id and password required", nil)
	}

	user, token, raw, err := h.auth.LoginOperator(c.UserContext(), req.UserID, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: raw, ExpiresAt: token.ExpiresAt},
		},
	})
}
