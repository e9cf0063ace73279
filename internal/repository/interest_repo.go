package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// InterestRepository persists the interest catalogue and user selections.
type InterestRepository interface {
	ListActive(ctx context.Context) ([]models.Interest, error)
	ListIDsByUser(ctx context.Context, userID uint) ([]uint, error)
	ListNamesByUser(ctx context.Context, userID uint) ([]string, error)
	ReplaceUserInterests(ctx context.Context, userID uint, interestIDs []uint) error
}

type interestRepository struct {
	db *gorm.DB
}

// NewInterestRepository constructs an interest repository backed by GORM.
func NewInterestRepository(db *gorm.DB) InterestRepository {
	return &interestRepository{db: db}
}

func (r *interestRepository) ListActive(ctx context.Context) ([]models.Interest, error) {
	var interests []models.Interest
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("category, name").
		Find(&interests).Error
	if err != nil {
		return nil, err
	}
	return interests, nil
}

func (r *interestRepository) ListIDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.UserInterest{}).
		Where("user_id = ?", userID).
		Pluck("interest_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *interestRepository) ListNamesByUser(ctx context.Context, userID uint) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.UserInterest{}).
		Joins("JOIN interests ON interests.id = user_interests.interest_id").
		Where("user_interests.user_id = ?", userID).
		Pluck("interests.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *interestRepository) ReplaceUserInterests(ctx context.Context, userID uint, interestIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserInterest{}).Error; err != nil {
			return err
		}
		for _, id := range interestIDs {
			link := models.UserInterest{UserID: userID, InterestID: id}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
