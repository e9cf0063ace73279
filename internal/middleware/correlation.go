package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Correlation identifiers tie a request's log lines, trace spans and chat
// events together across the API nodes.
const (
	correlationHeader = "X-Correlation-ID"
	correlationLocals = "correlation_id"
	requestIDHeader   = "X-Request-ID"
)

type correlationCtxKey struct{}

// CorrelationID tags every request with an identifier: the client's own
// X-Correlation-ID (or X-Request-ID) when present, a fresh UUID otherwise.
// The identifier is echoed back on the response.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := incomingCorrelationID(c)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocals, id)
		c.Set(correlationHeader, id)
		c.SetUserContext(context.WithValue(c.Context(), correlationCtxKey{}, id))

		return c.Next()
	}
}

func incomingCorrelationID(c *fiber.Ctx) string {
	for _, header := range []string{correlationHeader, requestIDHeader} {
		if id := strings.TrimSpace(c.Get(header)); id != "" {
			return id
		}
	}
	return ""
}

// GetCorrelationID returns the identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocals).(string); ok && id != "" {
		return id
	}
	return CorrelationIDFromContext(c.Context())
}

// CorrelationIDFromContext extracts the identifier from a context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}

// ContextWithCorrelation attaches the identifier to a detached context, used
// when work outlives the request (websocket pumps, background publishes).
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationCtxKey{}, correlationID)
}
