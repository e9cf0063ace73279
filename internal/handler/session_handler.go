package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/middleware"
	"github.com/matchfyn/matchfyn-api/internal/service"
)

// SessionHandler wires the realtime websocket upgrade.
type SessionHandler struct {
	sessions service.RoomSessionService
	users    service.UserService
	logger   zerolog.Logger
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions service.RoomSessionService, users service.UserService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		users:    users,
		logger:   logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *SessionHandler) handleConnection(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "authentication required"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	correlation, _ := conn.Locals("correlation_id").(string)

	opts := service.RoomSessionOptions{
		UserID:        userID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}
	if profile, err := h.users.Get(baseCtx, userID); err == nil {
		opts.UserName = profile.Name
		opts.ProfileImageURL = profile.ProfileImageURL
	}

	h.logger.Info().Uint("user_id", userID).Msg("realtime websocket connected")
	h.sessions.ServeConnection(conn, opts)
	h.logger.Info().Uint("user_id", userID).Msg("realtime websocket disconnected")
}
