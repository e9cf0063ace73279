package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// CandidateFilter narrows the user pool the matching engine scores against.
type CandidateFilter struct {
	ExcludeUserID uint
	GenderFilter  models.GenderFilter
	MinAge        *int
	MaxAge        *int
}

// UserRepository persists user accounts and profile data.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, page, pageSize int) ([]models.User, int64, error)
	Save(ctx context.Context, user *models.User) error
	FindCandidates(ctx context.Context, filter CandidateFilter, now time.Time) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, page, pageSize int) ([]models.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// FindCandidates returns active verified users matching the gender and age
// filters. Age is plain year subtraction, matching the scorer's convention.
func (r *userRepository) FindCandidates(ctx context.Context, filter CandidateFilter, now time.Time) ([]models.User, error) {
	query := r.db.WithContext(ctx).
		Where("is_active = ? AND is_email_verified = ?", true, true)

	if filter.ExcludeUserID != 0 {
		query = query.Where("id <> ?", filter.ExcludeUserID)
	}
	if filter.GenderFilter != "" && filter.GenderFilter != models.GenderFilterMixed {
		query = query.Where("gender = ?", string(filter.GenderFilter))
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}

	if filter.MinAge == nil && filter.MaxAge == nil {
		return users, nil
	}

	filtered := users[:0]
	for _, u := range users {
		age := u.Age(now)
		if filter.MinAge != nil && age < *filter.MinAge {
			continue
		}
		if filter.MaxAge != nil && age > *filter.MaxAge {
			continue
		}
		filtered = append(filtered, u)
	}

	return filtered, nil
}
