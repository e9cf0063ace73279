package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/matchfyn/matchfyn-api/internal/utils"
)

// Fallback window applied when a caller passes a non-positive budget, sized
// for the auth endpoints where the limiter guards against credential stuffing.
const (
	defaultLimitMax    = 10
	defaultLimitWindow = time.Minute
)

// RateLimit caps how often a caller may hit a route group. Authenticated
// requests are budgeted per user so one account cannot starve an address
// shared behind a NAT; anonymous requests fall back to the client IP.
func RateLimit(name string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = defaultLimitMax
	}
	if window <= 0 {
		window = defaultLimitWindow
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := c.Locals("user_id").(uint); ok && userID != 0 {
				return fmt.Sprintf("%s:user:%d", name, userID)
			}
			return fmt.Sprintf("%s:ip:%s", name, c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests, slow down")
		},
	})
}
