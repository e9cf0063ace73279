package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// ParticipantRepository persists room membership rows.
type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.RoomParticipant) error
	Save(ctx context.Context, participant *models.RoomParticipant) error
	ActiveByRoomAndUser(ctx context.Context, roomID, userID uint) (models.RoomParticipant, error)
	LatestInactiveByRoomAndUser(ctx context.Context, roomID, userID uint) (models.RoomParticipant, error)
	ListActiveByRoom(ctx context.Context, roomID uint) ([]models.RoomParticipant, error)
	ListActiveByUser(ctx context.Context, userID uint) ([]models.RoomParticipant, error)
	ListIdle(ctx context.Context, idleSince time.Time) ([]models.RoomParticipant, error)
	CountActive(ctx context.Context) (int64, error)
	CountActiveByRoom(ctx context.Context, roomID uint) (int64, error)
}

// ErrNoParticipant is returned when no matching participant row exists.
var ErrNoParticipant = errors.New("participant not found")

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository constructs a participant repository backed by GORM.
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Create(ctx context.Context, participant *models.RoomParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *participantRepository) Save(ctx context.Context, participant *models.RoomParticipant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}

func (r *participantRepository) ActiveByRoomAndUser(ctx context.Context, roomID, userID uint) (models.RoomParticipant, error) {
	var participant models.RoomParticipant
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, true).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.RoomParticipant{}, ErrNoParticipant
	}
	if err != nil {
		return models.RoomParticipant{}, err
	}
	return participant, nil
}

// LatestInactiveByRoomAndUser finds the most recent soft-closed row for the
// pair so a rejoin can reactivate it instead of inserting a duplicate.
func (r *participantRepository) LatestInactiveByRoomAndUser(ctx context.Context, roomID, userID uint) (models.RoomParticipant, error) {
	var participant models.RoomParticipant
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ? AND is_active = ?", roomID, userID, false).
		Order("joined_at DESC").
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.RoomParticipant{}, ErrNoParticipant
	}
	if err != nil {
		return models.RoomParticipant{}, err
	}
	return participant, nil
}

func (r *participantRepository) ListActiveByRoom(ctx context.Context, roomID uint) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *participantRepository) ListActiveByUser(ctx context.Context, userID uint) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// ListIdle returns active participants whose last activity predates idleSince
// and who are not already marked offline.
func (r *participantRepository) ListIdle(ctx context.Context, idleSince time.Time) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	err := r.db.WithContext(ctx).
		Preload("Room").
		Where("is_active = ? AND last_activity_at < ? AND status <> ?",
			true, idleSince, string(models.ParticipantStatusOffline)).
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *participantRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoomParticipant{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

func (r *participantRepository) CountActiveByRoom(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoomParticipant{}).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Count(&count).Error
	return count, err
}
