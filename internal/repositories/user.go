package repositories

import (
	"context"
	"errors"

	"sahel/internal/models"
	"sahel/internal/repositories/cache"

	"gorm.io/gorm"
)

// ErrUserNotFound is returned when no applicant matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRepository loads and saves applicants.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

// NewUserRepository creates a cache-backed user repository.
func NewUserRepository(db *gorm.DB, cacheService *cache.CacheService) UserRepository {
	return &userRepository{db: db, cache: cacheService}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if user, err := r.cache.GetUser(ctx, id); err == nil {
		return user, nil
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := r.cache.CacheUser(ctx, &user); err != nil {
		// Cache failures are not the caller's problem.
		_ = err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return err
	}
	return r.cache.InvalidateUser(ctx, user.ID)
}
