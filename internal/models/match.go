package models

import "time"

// Match records one user's like or dislike of another. A pair has at most one
// match row regardless of direction; the row is created once and only ever
// transitions pending -> accepted/rejected.
type Match struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	SenderID    uint        `gorm:"not null;index:idx_match_pair" json:"sender_id"`
	ReceiverID  uint        `gorm:"not null;index:idx_match_pair" json:"receiver_id"`
	Status      MatchStatus `gorm:"size:20;default:pending" json:"status"`
	Message     string      `gorm:"size:500" json:"message,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	RespondedAt *time.Time  `json:"responded_at,omitempty"`

	Sender   User `gorm:"foreignKey:SenderID" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"-"`
}
