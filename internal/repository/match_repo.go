package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// MatchRepository persists match records between users.
type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id uint) (models.Match, error)
	FindByPair(ctx context.Context, userA, userB uint) (models.Match, error)
	ListByUser(ctx context.Context, userID uint, status models.MatchStatus, page, pageSize int) ([]models.Match, int64, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Save(ctx context.Context, match *models.Match) error
	Delete(ctx context.Context, id uint) error
}

type matchRepository struct {
	db *gorm.DB
}

// NewMatchRepository constructs a match repository backed by GORM.
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, match *models.Match) error {
	return r.db.WithContext(ctx).Create(match).Error
}

func (r *matchRepository) GetByID(ctx context.Context, id uint) (models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).First(&match, id).Error
	if err != nil {
		return models.Match{}, err
	}
	return match, nil
}

// FindByPair looks up the match between two users in either direction; a pair
// has at most one row.
func (r *matchRepository) FindByPair(ctx context.Context, userA, userB uint) (models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		First(&match).Error
	if err != nil {
		return models.Match{}, err
	}
	return match, nil
}

func (r *matchRepository) ListByUser(ctx context.Context, userID uint, status models.MatchStatus, page, pageSize int) ([]models.Match, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.Match{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var matches []models.Match
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&matches).Error
	if err != nil {
		return nil, 0, err
	}

	return matches, total, nil
}

func (r *matchRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Match{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Count(&count).Error
	return count, err
}

func (r *matchRepository) Save(ctx context.Context, match *models.Match) error {
	return r.db.WithContext(ctx).Save(match).Error
}

func (r *matchRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Match{}, id).Error
}
