package models

import (
	"time"

	"gorm.io/datatypes"
)

// VoiceSession tracks a user's voice-channel presence in a room. It follows
// the same soft lifecycle as RoomParticipant: opened on join, soft-closed on
// leave, never hard-deleted.
type VoiceSession struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	RoomID         uint              `gorm:"not null;index" json:"room_id"`
	UserID         uint              `gorm:"not null;index" json:"user_id"`
	StartedAt      time.Time         `json:"started_at"`
	EndedAt        *time.Time        `json:"ended_at,omitempty"`
	TotalSpeakTime int               `gorm:"default:0" json:"total_speak_time_seconds"`
	QualityMetrics datatypes.JSONMap `gorm:"type:json" json:"quality_metrics,omitempty"`
	IsActive       bool              `gorm:"default:true;index" json:"is_active"`
}
