package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// UserService exposes profile reads and updates.
type UserService interface {
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	List(ctx context.Context, page, pageSize int) ([]dto.UserResponse, dto.PaginationMeta, error)
	Update(ctx context.Context, id uint, req dto.UserUpdateRequest) (dto.UserResponse, error)
	SetProfileImage(ctx context.Context, id uint, url string) (dto.UserResponse, error)
	Deactivate(ctx context.Context, id uint) error
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, page, pageSize int) ([]dto.UserResponse, dto.PaginationMeta, error) {
	users, total, err := s.users.List(ctx, page, pageSize)
	if err != nil {
		return nil, dto.PaginationMeta{}, err
	}
	return dto.NewUserResponseSlice(users), dto.NewPaginationMeta(page, pageSize, total), nil
}

func (s *userService) Update(ctx context.Context, id uint, req dto.UserUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.City != nil {
		user.City = *req.City
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}

	if err := s.users.Save(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) SetProfileImage(ctx context.Context, id uint, url string) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user.ProfileImageURL = url
	if err := s.users.Save(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) Deactivate(ctx context.Context, id uint) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	user.IsActive = false
	user.RefreshToken = ""
	user.RefreshTokenExpiry = nil
	if err := s.users.Save(ctx, &user); err != nil {
		return err
	}

	s.logger.Info().Uint("user_id", id).Msg("deactivated account")
	return nil
}
