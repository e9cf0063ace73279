package models

import "time"

// SystemSenderID marks messages emitted by the server rather than a participant.
const SystemSenderID = 0

// MaxMessageLength caps chat message content.
const MaxMessageLength = 1000

// Message is one entry in a room's chat stream. Edits and deletes are soft
// flags; display order is created_at plus insertion order.
type Message struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	RoomID           uint        `gorm:"not null;index" json:"room_id"`
	SenderID         uint        `gorm:"not null" json:"sender_id"`
	Content          string      `gorm:"size:1000;not null" json:"content"`
	MessageType      MessageType `gorm:"size:20;default:Text" json:"message_type"`
	ReplyToMessageID *uint       `json:"reply_to_message_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	IsEdited         bool        `gorm:"default:false" json:"is_edited"`
	EditedAt         *time.Time  `json:"edited_at,omitempty"`
	IsDeleted        bool        `gorm:"default:false" json:"is_deleted"`
	DeletedAt        *time.Time  `json:"deleted_at,omitempty"`

	Reactions []MessageReaction `gorm:"constraint:OnDelete:CASCADE" json:"reactions,omitempty"`
}

// IsSystem reports whether the message was produced by the server.
func (m Message) IsSystem() bool {
	return m.SenderID == SystemSenderID
}

// MessageReaction is one user's reaction of one type on one message.
// Reacting again with the same type removes the row (toggle semantics), so at
// most one row exists per (message, user, type).
type MessageReaction struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	MessageID    uint         `gorm:"not null;index:idx_reaction_unique" json:"message_id"`
	UserID       uint         `gorm:"not null;index:idx_reaction_unique" json:"user_id"`
	ReactionType ReactionType `gorm:"size:20;not null;index:idx_reaction_unique" json:"reaction_type"`
	Emoji        string       `gorm:"size:10" json:"emoji,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
