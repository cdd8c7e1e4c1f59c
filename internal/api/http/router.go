package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	if cfg.Auth != nil {
		app.Post("/auth/login", cfg.Auth.Login)
		app.Post("/auth/register", cfg.Auth.Register)
	}

	canRead := auth.RequirePermission(domain.AreaTickets, domain.PermissionRead)
	canWrite := auth.RequirePermission(domain.AreaTickets, domain.PermissionReadWrite)

	pages := app.Group("/tickets", cfg.AuthMiddleware, auth.RequireAnyRole())
	pages.Get("/:id", cfg.Tickets.DetailPage)

	api := app.Group("/api/tickets", cfg.AuthMiddleware, auth.RequireAnyRole())
	api.Get("/", canWrite, cfg.Tickets.ListByStatus)
	api.Post("/", canRead, cfg.Tickets.Create)
	api.Get("/metrics", canWrite, cfg.Tickets.Metrics)
	api.Get("/:id/resolution", cfg.Tickets.Resolution)
	api.Get("/:id/history", cfg.Tickets.History)
	api.Post("/:id/comment", canRead, cfg.Tickets.AddComment)
	api.Post("/:id/status", canWrite, cfg.Tickets.UpdateStatus)
}
