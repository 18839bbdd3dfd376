package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/relay-desk/internal/api/http/handlers"
	"github.com/spec-kit/relay-desk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Auth           *handlers.AuthHandler
	Console        *handlers.ConsoleHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Get)

	app.Post("/auth/login", cfg.Auth.Login)
	app.Get("/events", cfg.Console.ListEvents)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireTopRank())
	admin.Get("/tickets", cfg.Console.ListTickets)
	admin.Get("/tickets/:id", cfg.Console.GetTicket)
	admin.Post("/tickets/:id/reply", cfg.Console.Reply)
	admin.Post("/codes", cfg.Console.CreateCode)
	admin.Get("/users", cfg.Console.ListUsers)
	admin.Patch("/users/:id", cfg.Console.UpdateUser)
}
