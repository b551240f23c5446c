package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Incidents      *handlers.IncidentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	incidents := app.Group("/incidents", cfg.AuthMiddleware.Handle)
	incidents.Post("/", cfg.Incidents.CreateIncident)
	incidents.Get("/:id", cfg.Incidents.GetIncident)
	incidents.Patch("/:id", cfg.Incidents.UpdateIncident)
	incidents.Post("/:id/transition", cfg.Incidents.Transition)
	incidents.Post("/:id/comments", cfg.Incidents.AddComment)
	incidents.Get("/:id/timeline", cfg.Incidents.ListTimeline)
	incidents.Get("/:id/duplicates", cfg.Incidents.FindDuplicates)
	incidents.Post("/:id/merge", cfg.Incidents.Merge)
}
