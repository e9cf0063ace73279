package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// ReactionCount aggregates reactions of one type on a message.
type ReactionCount struct {
	ReactionType models.ReactionType `json:"reaction_type"`
	Count        int64               `json:"count"`
}

// MessageRepository persists chat messages and their reactions.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (models.Message, error)
	ListByRoom(ctx context.Context, roomID uint, before time.Time, limit int) ([]models.Message, error)
	ToggleReaction(ctx context.Context, messageID, userID uint, reaction models.ReactionType) (bool, error)
	ReactionCounts(ctx context.Context, messageID uint) ([]ReactionCount, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).First(&message, id).Error
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

// ListByRoom fetches newest-first then reverses so callers receive the
// messages in chronological order.
func (r *messageRepository) ListByRoom(ctx context.Context, roomID uint, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Where("room_id = ? AND is_deleted = ?", roomID, false)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ToggleReaction removes an existing (message, user, type) row or creates one
// when absent. It returns true when the reaction was added.
func (r *messageRepository) ToggleReaction(ctx context.Context, messageID, userID uint, reaction models.ReactionType) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.MessageReaction
		err := tx.Where("message_id = ? AND user_id = ? AND reaction_type = ?",
			messageID, userID, string(reaction)).
			First(&existing).Error

		switch {
		case err == nil:
			return tx.Delete(&existing).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			added = true
			row := models.MessageReaction{
				MessageID:    messageID,
				UserID:       userID,
				ReactionType: reaction,
				Emoji:        reaction.Emoji(),
			}
			return tx.Create(&row).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (r *messageRepository) ReactionCounts(ctx context.Context, messageID uint) ([]ReactionCount, error) {
	var counts []ReactionCount
	err := r.db.WithContext(ctx).Model(&models.MessageReaction{}).
		Select("reaction_type, COUNT(*) as count").
		Where("message_id = ?", messageID).
		Group("reaction_type").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
