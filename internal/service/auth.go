package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/config"
	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// minRegistrationAge is the youngest age an account may register with.
const minRegistrationAge = 18

// Auth errors surfaced to handlers.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUnderage           = errors.New("users must be at least 18 years old")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
)

// AuthService handles registration, login and the token lifecycle.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (dto.AuthResponse, error)
	Logout(ctx context.Context, userID uint) error
}

type authService struct {
	users     repository.UserRepository
	cfg       config.Config
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(users repository.UserRepository, cfg config.Config, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		cfg:       cfg,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	now := s.now()
	probe := models.User{DateOfBirth: req.DateOfBirth}
	if probe.Age(now) < minRegistrationAge {
		return dto.AuthResponse{}, ErrUnderage
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AuthResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		PhoneNumber:  req.PhoneNumber,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		City:         req.City,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.AuthResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("registered new account")
	return s.issueTokens(ctx, &user)
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}
	if !user.IsActive {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	lastLogin := s.now()
	user.LastLoginAt = &lastLogin

	return s.issueTokens(ctx, &user)
}

// Refresh validates the stored refresh token and rotates the pair. The access
// token is parsed without expiry validation since it is usually already stale.
func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	userID, err := s.subjectFromToken(req.AccessToken)
	if err != nil {
		return dto.AuthResponse{}, ErrInvalidRefresh
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.AuthResponse{}, ErrInvalidRefresh
	}

	if user.RefreshToken == "" || user.RefreshToken != req.RefreshToken {
		return dto.AuthResponse{}, ErrInvalidRefresh
	}
	if user.RefreshTokenExpiry == nil || user.RefreshTokenExpiry.Before(s.now()) {
		return dto.AuthResponse{}, ErrInvalidRefresh
	}

	return s.issueTokens(ctx, &user)
}

func (s *authService) Logout(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	user.RefreshToken = ""
	user.RefreshTokenExpiry = nil
	return s.users.Save(ctx, &user)
}

// issueTokens mints an access token, rotates the refresh token and persists
// the user in one save.
func (s *authService) issueTokens(ctx context.Context, user *models.User) (dto.AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(user.ID), 10),
		"name":  user.Name,
		"email": user.Email,
		"iss":   s.cfg.JWTIssuer,
		"aud":   s.cfg.JWTAudience,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := randomToken()
	if err != nil {
		return dto.AuthResponse{}, err
	}

	refreshExpiry := now.Add(s.cfg.RefreshTokenTTL)
	user.RefreshToken = refresh
	user.RefreshTokenExpiry = &refreshExpiry
	if err := s.users.Save(ctx, user); err != nil {
		return dto.AuthResponse{}, err
	}

	return dto.AuthResponse{
		AccessToken:  signed,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         dto.NewUserResponse(*user),
	}, nil
}

// subjectFromToken extracts the user id from a possibly expired access token.
// The signature is still verified.
func (s *authService) subjectFromToken(tokenString string) (uint, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidRefresh
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidRefresh
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return 0, ErrInvalidRefresh
	}

	parsed, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidRefresh
	}

	return uint(parsed), nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
