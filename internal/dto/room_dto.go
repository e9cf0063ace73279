package dto

import (
	"time"

	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// RoomCreateRequest creates a user-owned Private or Public room.
type RoomCreateRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=100"`
	Description string   `json:"description" validate:"omitempty,max=500"`
	RoomType    string   `json:"room_type" validate:"required,oneof=Private Public"`
	MaxCapacity *int     `json:"max_capacity" validate:"omitempty,gte=2,lte=50"`
	IsPremium   bool     `json:"is_premium"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

// ParticipantResponse is the public view of a room participant.
type ParticipantResponse struct {
	ID                  uint                     `json:"id"`
	UserID              uint                     `json:"user_id"`
	DisplayName         string                   `json:"display_name"`
	ProfileImageURL     string                   `json:"profile_image_url,omitempty"`
	Role                models.ParticipantRole   `json:"role"`
	Status              models.ParticipantStatus `json:"status"`
	IsMicrophoneEnabled bool                     `json:"is_microphone_enabled"`
	IsSpeaking          bool                     `json:"is_speaking"`
	GridPosition        *int                     `json:"grid_position,omitempty"`
}

// NewParticipantResponse maps a participant model to its public view.
func NewParticipantResponse(p models.RoomParticipant) ParticipantResponse {
	return ParticipantResponse{
		ID:                  p.ID,
		UserID:              p.UserID,
		DisplayName:         p.DisplayName,
		ProfileImageURL:     p.ProfileImageURL,
		Role:                p.Role,
		Status:              p.Status,
		IsMicrophoneEnabled: p.IsMicrophoneEnabled,
		IsSpeaking:          p.IsSpeaking,
		GridPosition:        p.GridPosition,
	}
}

// RoomResponse is the public view of a room.
type RoomResponse struct {
	ID                  uint                  `json:"id"`
	Name                string                `json:"name"`
	Description         string                `json:"description,omitempty"`
	RoomType            models.RoomType       `json:"room_type"`
	Status              models.RoomStatus     `json:"status"`
	CurrentParticipants int                   `json:"current_participants"`
	MaxCapacity         int                   `json:"max_capacity"`
	GenderFilter        models.GenderFilter   `json:"gender_filter,omitempty"`
	MinAge              *int                  `json:"min_age,omitempty"`
	MaxAge              *int                  `json:"max_age,omitempty"`
	IsPremium           bool                  `json:"is_premium"`
	Price               *float64              `json:"price,omitempty"`
	ExpiresAt           *time.Time            `json:"expires_at,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	Participants        []ParticipantResponse `json:"participants,omitempty"`
}

// NewRoomResponse maps a room model (with any preloaded participants) to its
// public view.
func NewRoomResponse(room models.Room) RoomResponse {
	participants := make([]ParticipantResponse, 0, len(room.Participants))
	for _, p := range room.Participants {
		participants = append(participants, NewParticipantResponse(p))
	}

	return RoomResponse{
		ID:                  room.ID,
		Name:                room.Name,
		Description:         room.Description,
		RoomType:            room.RoomType,
		Status:              room.Status,
		CurrentParticipants: room.CurrentParticipants,
		MaxCapacity:         room.MaxCapacity,
		GenderFilter:        room.GenderFilter,
		MinAge:              room.MinAge,
		MaxAge:              room.MaxAge,
		IsPremium:           room.IsPremium,
		Price:               room.Price,
		ExpiresAt:           room.ExpiresAt,
		CreatedAt:           room.CreatedAt,
		Participants:        participants,
	}
}

// NewRoomResponseSlice maps a slice of room models.
func NewRoomResponseSlice(rooms []models.Room) []RoomResponse {
	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, NewRoomResponse(room))
	}
	return out
}

// RoomListResponse wraps a page of rooms.
type RoomListResponse struct {
	Items      []RoomResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// MessageResponse is the public view of a chat message.
type MessageResponse struct {
	ID               uint                       `json:"id"`
	RoomID           uint                       `json:"room_id"`
	SenderID         uint                       `json:"sender_id"`
	Content          string                     `json:"content"`
	MessageType      models.MessageType         `json:"message_type"`
	ReplyToMessageID *uint                      `json:"reply_to_message_id,omitempty"`
	CreatedAt        time.Time                  `json:"created_at"`
	IsEdited         bool                       `json:"is_edited"`
	Reactions        []repository.ReactionCount `json:"reactions,omitempty"`
}

// NewMessageResponse maps a message model to its public view.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:               message.ID,
		RoomID:           message.RoomID,
		SenderID:         message.SenderID,
		Content:          message.Content,
		MessageType:      message.MessageType,
		ReplyToMessageID: message.ReplyToMessageID,
		CreatedAt:        message.CreatedAt,
		IsEdited:         message.IsEdited,
	}
}

// NewMessageResponseSlice maps a slice of message models.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}

// RoomDetailResponse is a room with its recent message history.
type RoomDetailResponse struct {
	Room     RoomResponse      `json:"room"`
	Messages []MessageResponse `json:"messages"`
}
