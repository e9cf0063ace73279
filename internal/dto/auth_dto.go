package dto

import (
	"time"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Name        string    `json:"name" validate:"required,min=2,max=100"`
	Email       string    `json:"email" validate:"required,email,max=255"`
	Password    string    `json:"password" validate:"required,min=8,max=72"`
	DateOfBirth time.Time `json:"date_of_birth" validate:"required"`
	Gender      string    `json:"gender" validate:"omitempty,oneof=Male Female"`
	City        string    `json:"city" validate:"omitempty,max=100"`
	PhoneNumber string    `json:"phone_number" validate:"omitempty,max=20"`
}

// LoginRequest is the payload for credential login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the expired access token and the refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse returns the token pair after register/login/refresh.
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         UserResponse `json:"user"`
}

// UserResponse is the public view of a user account.
type UserResponse struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	DateOfBirth     time.Time  `json:"date_of_birth"`
	Gender          string     `json:"gender,omitempty"`
	City            string     `json:"city,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	ProfileImageURL string     `json:"profile_image_url,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewUserResponse maps a user model to its public view.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		DateOfBirth:     user.DateOfBirth,
		Gender:          user.Gender,
		City:            user.City,
		Bio:             user.Bio,
		ProfileImageURL: user.ProfileImageURL,
		LastLoginAt:     user.LastLoginAt,
		CreatedAt:       user.CreatedAt,
	}
}

// NewUserResponseSlice maps a slice of user models.
func NewUserResponseSlice(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}

// UserUpdateRequest is the payload for profile updates.
type UserUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=20"`
}
