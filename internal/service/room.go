package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// ErrRoomNotFound is returned when a room does not exist or is inactive.
var ErrRoomNotFound = errors.New("room not found")

// RoomService exposes the REST surface over rooms: listing, detail with
// recent history and user-created rooms. Joins and realtime activity go
// through the session manager instead.
type RoomService interface {
	List(ctx context.Context, filter repository.RoomListFilter) (dto.RoomListResponse, error)
	Detail(ctx context.Context, roomID uint) (dto.RoomDetailResponse, error)
	Messages(ctx context.Context, roomID uint, before time.Time, limit int) ([]dto.MessageResponse, error)
	Create(ctx context.Context, userID uint, req dto.RoomCreateRequest) (dto.RoomResponse, error)
	MyRooms(ctx context.Context, userID uint) ([]dto.RoomResponse, error)
}

type roomService struct {
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	messages     repository.MessageRepository
	users        repository.UserRepository
	validator    *validator.Validate
	logger       zerolog.Logger
	now          func() time.Time
}

// NewRoomService constructs the room service.
func NewRoomService(
	rooms repository.RoomRepository,
	participants repository.ParticipantRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) RoomService {
	return &roomService{
		rooms:        rooms,
		participants: participants,
		messages:     messages,
		users:        users,
		validator:    validate,
		logger:       logger.With().Str("component", "room_service").Logger(),
		now:          time.Now,
	}
}

func (s *roomService) List(ctx context.Context, filter repository.RoomListFilter) (dto.RoomListResponse, error) {
	if filter.RoomType != "" && !filter.RoomType.Valid() {
		return dto.RoomListResponse{}, errors.New("unknown room type")
	}

	rooms, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return dto.RoomListResponse{}, err
	}

	return dto.RoomListResponse{
		Items:      dto.NewRoomResponseSlice(rooms),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

// Detail returns the room with active participants and its most recent
// messages, oldest first, with reaction tallies attached.
func (s *roomService) Detail(ctx context.Context, roomID uint) (dto.RoomDetailResponse, error) {
	room, err := s.rooms.GetActiveWithParticipants(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoomDetailResponse{}, ErrRoomNotFound
		}
		return dto.RoomDetailResponse{}, err
	}

	messages, err := s.Messages(ctx, roomID, time.Time{}, 0)
	if err != nil {
		return dto.RoomDetailResponse{}, err
	}

	return dto.RoomDetailResponse{
		Room:     dto.NewRoomResponse(room),
		Messages: messages,
	}, nil
}

func (s *roomService) Messages(ctx context.Context, roomID uint, before time.Time, limit int) ([]dto.MessageResponse, error) {
	messages, err := s.messages.ListByRoom(ctx, roomID, before, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.MessageResponse, 0, len(messages))
	for _, message := range messages {
		view := dto.NewMessageResponse(message)
		counts, err := s.messages.ReactionCounts(ctx, message.ID)
		if err == nil && len(counts) > 0 {
			view.Reactions = counts
		}
		out = append(out, view)
	}

	return out, nil
}

// Create makes a user-owned Private or Public room and seats the creator as
// its owner.
func (s *roomService) Create(ctx context.Context, userID uint, req dto.RoomCreateRequest) (dto.RoomResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.RoomResponse{}, err
	}

	roomType := models.RoomType(req.RoomType)
	if roomType != models.RoomTypePrivate && roomType != models.RoomTypePublic {
		return dto.RoomResponse{}, errors.New("only Private and Public rooms can be created")
	}

	creator, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.RoomResponse{}, err
	}

	defaults := models.DefaultsForRoomType(roomType)
	capacity := defaults.MaxCapacity
	if req.MaxCapacity != nil {
		capacity = *req.MaxCapacity
	}

	room := models.Room{
		Name:            req.Name,
		Description:     req.Description,
		RoomType:        roomType,
		Status:          models.RoomStatusActive,
		MaxCapacity:     capacity,
		CreatedByUserID: &userID,
		IsPremium:       req.IsPremium,
		Price:           req.Price,
		IsActive:        true,
	}
	if err := s.rooms.Create(ctx, &room); err != nil {
		return dto.RoomResponse{}, err
	}

	now := s.now()
	slot := 1
	owner := models.RoomParticipant{
		RoomID:          room.ID,
		UserID:          userID,
		DisplayName:     creator.Name,
		ProfileImageURL: creator.ProfileImageURL,
		Role:            models.ParticipantRoleOwner,
		Status:          models.ParticipantStatusOnline,
		GridPosition:    &slot,
		JoinedAt:        now,
		LastActivityAt:  now,
		IsActive:        true,
	}
	if err := s.participants.Create(ctx, &owner); err != nil {
		return dto.RoomResponse{}, err
	}

	room.CurrentParticipants = 1
	if err := s.rooms.Save(ctx, &room); err != nil {
		return dto.RoomResponse{}, err
	}

	s.logger.Info().
		Uint("room_id", room.ID).
		Uint("user_id", userID).
		Str("room_type", string(roomType)).
		Msg("created user room")

	room.Participants = []models.RoomParticipant{owner}
	return dto.NewRoomResponse(room), nil
}

func (s *roomService) MyRooms(ctx context.Context, userID uint) ([]dto.RoomResponse, error) {
	rooms, err := s.rooms.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewRoomResponseSlice(rooms), nil
}
