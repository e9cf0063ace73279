package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/config"
	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

func newAuthFixture(t *testing.T) (*gorm.DB, *authService) {
	t.Helper()

	db := openTestDB(t)
	cfg := config.Config{
		JWTSecret:       "test-secret",
		JWTIssuer:       "matchfyn",
		JWTAudience:     "matchfyn-clients",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewAuthService(repository.NewUserRepository(db), cfg, validate, zerolog.Nop()).(*authService)
	return db, svc
}

func registerRequest() dto.RegisterRequest {
	return dto.RegisterRequest{
		Name:        "Ana",
		Email:       "Ana@Example.com",
		Password:    "s3cret-password",
		DateOfBirth: time.Date(1995, 4, 1, 0, 0, 0, 0, time.UTC),
		Gender:      "Female",
		City:        "Oslo",
	}
}

func TestRegisterNormalizesEmailAndIssuesTokens(t *testing.T) {
	db, svc := newAuthFixture(t)

	resp, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "ana@example.com", resp.User.Email)

	var user models.User
	require.NoError(t, db.First(&user, resp.User.ID).Error)
	require.Equal(t, resp.RefreshToken, user.RefreshToken)
	require.NotNil(t, user.RefreshTokenExpiry)
	require.NotEqual(t, "s3cret-password", user.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerRequest())
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsUnderage(t *testing.T) {
	_, svc := newAuthFixture(t)
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

	req := registerRequest()
	req.DateOfBirth = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrUnderage)
}

func TestLoginVerifiesPasswordAndRotatesRefreshToken(t *testing.T) {
	db, svc := newAuthFixture(t)

	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "ana@example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)
	require.NotEqual(t, registered.RefreshToken, resp.RefreshToken)

	var user models.User
	require.NoError(t, db.First(&user, resp.User.ID).Error)
	require.NotNil(t, user.LastLoginAt)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email:    "ana@example.com",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	db, svc := newAuthFixture(t)

	resp, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", resp.User.ID).
		UpdateColumn("is_active", false).Error)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email:    "ana@example.com",
		Password: "s3cret-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesThePair(t *testing.T) {
	_, svc := newAuthFixture(t)

	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), dto.RefreshRequest{
		AccessToken:  registered.AccessToken,
		RefreshToken: registered.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is spent.
	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{
		AccessToken:  registered.AccessToken,
		RefreshToken: registered.RefreshToken,
	})
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshRejectsForgedAccessToken(t *testing.T) {
	_, svc := newAuthFixture(t)

	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{
		AccessToken:  "not-a-token",
		RefreshToken: registered.RefreshToken,
	})
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogoutClearsRefreshToken(t *testing.T) {
	db, svc := newAuthFixture(t)

	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), registered.User.ID))

	var user models.User
	require.NoError(t, db.First(&user, registered.User.ID).Error)
	require.Empty(t, user.RefreshToken)
	require.Nil(t, user.RefreshTokenExpiry)
}
