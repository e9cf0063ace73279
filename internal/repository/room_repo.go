package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// RoomListFilter narrows room listings.
type RoomListFilter struct {
	RoomType models.RoomType
	Page     int
	PageSize int
}

// RoomTypeCount is an aggregate row for the lifecycle health check.
type RoomTypeCount struct {
	RoomType models.RoomType
	Count    int64
}

// RoomRepository persists rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id uint) (models.Room, error)
	GetActiveWithParticipants(ctx context.Context, id uint) (models.Room, error)
	List(ctx context.Context, filter RoomListFilter) ([]models.Room, int64, error)
	ListByParticipant(ctx context.Context, userID uint) ([]models.Room, error)
	Save(ctx context.Context, room *models.Room) error

	ListExpired(ctx context.Context, now time.Time) ([]models.Room, error)
	ListFullWaiting(ctx context.Context) ([]models.Room, error)
	ListEmptySince(ctx context.Context, threshold time.Time) ([]models.Room, error)
	CountActive(ctx context.Context, roomType models.RoomType, gender models.GenderFilter) (int64, error)
	CountAllActive(ctx context.Context) (int64, error)
	StatsByType(ctx context.Context) ([]RoomTypeCount, error)
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository constructs a room repository backed by GORM.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) GetByID(ctx context.Context, id uint) (models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (r *roomRepository) GetActiveWithParticipants(ctx context.Context, id uint) (models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Preload("Participants", "is_active = ?", true).
		Where("id = ? AND is_active = ?", id, true).
		First(&room).Error
	if err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (r *roomRepository) List(ctx context.Context, filter RoomListFilter) ([]models.Room, int64, error) {
	page := filter.Page
	pageSize := filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("is_active = ? AND status = ?", true, string(models.RoomStatusActive))
	if filter.RoomType != "" {
		query = query.Where("room_type = ?", string(filter.RoomType))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []models.Room
	err := query.
		Preload("Participants", "is_active = ?", true).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}

	return rooms, total, nil
}

func (r *roomRepository) ListByParticipant(ctx context.Context, userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Joins("JOIN room_participants ON room_participants.room_id = rooms.id").
		Where("room_participants.user_id = ? AND room_participants.is_active = ? AND rooms.is_active = ?",
			userID, true, true).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) Save(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

// ListExpired returns active waiting and matching rooms whose expiry has
// passed. Private and public rooms never expire.
func (r *roomRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Where("room_type IN ?", []string{string(models.RoomTypeWaiting), string(models.RoomTypeMatching)}).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) ListFullWaiting(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Preload("Participants", "is_active = ?", true).
		Where("is_active = ? AND room_type = ? AND status = ?",
			true, string(models.RoomTypeWaiting), string(models.RoomStatusActive)).
		Where("current_participants >= max_capacity").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// ListEmptySince returns active non-public rooms that have sat empty since
// before the threshold.
func (r *roomRepository) ListEmptySince(ctx context.Context, threshold time.Time) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND current_participants = 0 AND updated_at < ?", true, threshold).
		Where("room_type <> ?", string(models.RoomTypePublic)).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) CountActive(ctx context.Context, roomType models.RoomType, gender models.GenderFilter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("is_active = ? AND room_type = ? AND status = ?",
			true, string(roomType), string(models.RoomStatusActive))
	if gender != "" {
		query = query.Where("gender_filter = ?", string(gender))
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *roomRepository) CountAllActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("is_active = ? AND status = ?", true, string(models.RoomStatusActive)).
		Count(&count).Error
	return count, err
}

func (r *roomRepository) StatsByType(ctx context.Context) ([]RoomTypeCount, error) {
	var stats []RoomTypeCount
	err := r.db.WithContext(ctx).Model(&models.Room{}).
		Select("room_type, COUNT(*) as count").
		Where("is_active = ?", true).
		Group("room_type").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
