package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// VoiceSessionRepository persists voice-channel sessions.
type VoiceSessionRepository interface {
	Open(ctx context.Context, session *models.VoiceSession) error
	CloseForUser(ctx context.Context, roomID, userID uint, endedAt time.Time) error
	CloseAllForUser(ctx context.Context, userID uint, endedAt time.Time) error
}

type voiceSessionRepository struct {
	db *gorm.DB
}

// NewVoiceSessionRepository constructs a voice session repository backed by GORM.
func NewVoiceSessionRepository(db *gorm.DB) VoiceSessionRepository {
	return &voiceSessionRepository{db: db}
}

func (r *voiceSessionRepository) Open(ctx context.Context, session *models.VoiceSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *voiceSessionRepository) CloseForUser(ctx context.Context, roomID, userID uint, endedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.VoiceSession{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		Updates(map[string]interface{}{"is_active": false, "ended_at": endedAt}).Error
}

func (r *voiceSessionRepository) CloseAllForUser(ctx context.Context, userID uint, endedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.VoiceSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{"is_active": false, "ended_at": endedAt}).Error
}
