package dto

import (
	"time"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// MatchCreateRequest sends a match request to another user.
type MatchCreateRequest struct {
	ReceiverID uint   `json:"receiver_id" validate:"required"`
	Message    string `json:"message" validate:"omitempty,max=500"`
}

// MatchRespondRequest accepts or rejects a pending match.
type MatchRespondRequest struct {
	Accept bool `json:"accept"`
}

// MatchResponse is the public view of a match record.
type MatchResponse struct {
	ID          uint               `json:"id"`
	SenderID    uint               `json:"sender_id"`
	ReceiverID  uint               `json:"receiver_id"`
	Status      models.MatchStatus `json:"status"`
	Message     string             `json:"message,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	RespondedAt *time.Time         `json:"responded_at,omitempty"`
}

// NewMatchResponse maps a match model to its public view.
func NewMatchResponse(match models.Match) MatchResponse {
	return MatchResponse{
		ID:          match.ID,
		SenderID:    match.SenderID,
		ReceiverID:  match.ReceiverID,
		Status:      match.Status,
		Message:     match.Message,
		CreatedAt:   match.CreatedAt,
		RespondedAt: match.RespondedAt,
	}
}

// NewMatchResponseSlice maps a slice of match models.
func NewMatchResponseSlice(matches []models.Match) []MatchResponse {
	out := make([]MatchResponse, 0, len(matches))
	for _, match := range matches {
		out = append(out, NewMatchResponse(match))
	}
	return out
}

// MatchListResponse wraps a page of matches.
type MatchListResponse struct {
	Items      []MatchResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}
