package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/relay-desk/internal/domain"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// RequireTopRank lets through only principals holding the top rank.
// Services check the rank again before mutating.
func RequireTopRank() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.User.Rank != domain.TopRank {
			return apperrors.NewForbidden()
		}
		return c.Next()
	}
}
