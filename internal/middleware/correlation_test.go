package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/matchfyn/matchfyn-api/internal/middleware"
)

func newCorrelatedApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"correlation_id": middleware.GetCorrelationID(c)})
	})
	return app
}

func TestCorrelationIDEchoesClientHeader(t *testing.T) {
	app := newCorrelatedApp()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDFallsBackToRequestID(t *testing.T) {
	app := newCorrelatedApp()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-7")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "req-7", resp.Header.Get("X-Correlation-ID"))
}

func TestCorrelationIDGeneratesWhenAbsent(t *testing.T) {
	app := newCorrelatedApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}

func TestContextWithCorrelationRoundTrip(t *testing.T) {
	ctx := middleware.ContextWithCorrelation(nil, " span-9 ")
	require.Equal(t, "span-9", middleware.CorrelationIDFromContext(ctx))

	require.Empty(t, middleware.CorrelationIDFromContext(nil))
}
