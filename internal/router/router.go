package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/config"
	"github.com/matchfyn/matchfyn-api/internal/handler"
	"github.com/matchfyn/matchfyn-api/internal/middleware"
	"github.com/matchfyn/matchfyn-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DB              *gorm.DB
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	InterestHandler *handler.InterestHandler
	MatchHandler    *handler.MatchHandler
	MatchingHandler *handler.MatchingHandler
	RoomHandler     *handler.RoomHandler
	SessionHandler  *handler.SessionHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)
		deps.AuthHandler.RegisterProtected(api.Group("/auth", jwtMiddleware))
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
	}

	if deps.InterestHandler != nil {
		deps.InterestHandler.Register(api.Group("/interests", jwtMiddleware))
	}

	if deps.MatchHandler != nil {
		deps.MatchHandler.Register(api.Group("/matches", jwtMiddleware))
	}

	if deps.MatchingHandler != nil {
		deps.MatchingHandler.Register(api.Group("/matching", jwtMiddleware))
	}

	if deps.RoomHandler != nil {
		deps.RoomHandler.Register(api.Group("/rooms", jwtMiddleware))
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api.Group("/realtime", jwtMiddleware))
	}
}
