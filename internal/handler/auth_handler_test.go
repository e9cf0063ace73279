package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/handler"
	"github.com/matchfyn/matchfyn-api/internal/service"
)

type mockAuthService struct {
	response     dto.AuthResponse
	err          error
	lastRegister dto.RegisterRequest
	loggedOut    uint
}

func (m *mockAuthService) Register(_ context.Context, req dto.RegisterRequest) (dto.AuthResponse, error) {
	m.lastRegister = req
	return m.response, m.err
}

func (m *mockAuthService) Login(context.Context, dto.LoginRequest) (dto.AuthResponse, error) {
	return m.response, m.err
}

func (m *mockAuthService) Refresh(context.Context, dto.RefreshRequest) (dto.AuthResponse, error) {
	return m.response, m.err
}

func (m *mockAuthService) Logout(_ context.Context, userID uint) error {
	m.loggedOut = userID
	return m.err
}

func newAuthApp(svc service.AuthService) *fiber.App {
	app := fiber.New()
	h := handler.NewAuthHandler(svc, zerolog.New(io.Discard))
	h.Register(app.Group("/api/v1/auth"))
	h.RegisterProtected(app.Group("/api/v1/auth", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(42))
		return c.Next()
	}))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestAuthHandler_RegisterCreated(t *testing.T) {
	svc := &mockAuthService{response: dto.AuthResponse{
		AccessToken:  "token",
		RefreshToken: "refresh",
		User:         dto.UserResponse{ID: 1, Email: "ana@example.com"},
	}}
	app := newAuthApp(svc)

	payload := dto.RegisterRequest{
		Name:        "Ana",
		Email:       "ana@example.com",
		Password:    "s3cret-password",
		DateOfBirth: time.Date(1995, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	resp := postJSON(t, app, "/api/v1/auth/register", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool             `json:"success"`
		Data    dto.AuthResponse `json:"data"`
		Message string           `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "account created", response.Message)
	require.Equal(t, "token", response.Data.AccessToken)
	require.Equal(t, "ana@example.com", svc.lastRegister.Email)
}

func TestAuthHandler_RegisterErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"underage", service.ErrUnderage, fiber.StatusUnprocessableEntity},
		{"email taken", service.ErrEmailTaken, fiber.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAuthApp(&mockAuthService{err: tc.err})
			resp := postJSON(t, app, "/api/v1/auth/register", dto.RegisterRequest{})
			require.Equal(t, tc.status, resp.StatusCode)

			var response struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			decodeResponse(t, resp, &response)
			require.False(t, response.Success)
			require.Equal(t, tc.err.Error(), response.Message)
		})
	}
}

func TestAuthHandler_LoginUnauthorized(t *testing.T) {
	app := newAuthApp(&mockAuthService{err: service.ErrInvalidCredentials})
	resp := postJSON(t, app, "/api/v1/auth/login", dto.LoginRequest{Email: "a@b.c", Password: "nope"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_RefreshUnauthorized(t *testing.T) {
	app := newAuthApp(&mockAuthService{err: service.ErrInvalidRefresh})
	resp := postJSON(t, app, "/api/v1/auth/refresh", dto.RefreshRequest{AccessToken: "a", RefreshToken: "b"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_LogoutUsesAuthenticatedUser(t *testing.T) {
	svc := &mockAuthService{}
	app := newAuthApp(svc)

	resp := postJSON(t, app, "/api/v1/auth/logout", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(42), svc.loggedOut)
}
