package repositories

import (
	"context"
	"errors"

	"sahel/internal/models"
	"sahel/internal/repositories/cache"

	"gorm.io/gorm"
)

// ErrAssessmentNotFound is returned when an applicant has never been scored.
var ErrAssessmentNotFound = errors.New("risk assessment not found")

// AssessmentRepository persists risk assessment runs for audit and serves
// the latest one per applicant.
type AssessmentRepository interface {
	Create(ctx context.Context, a *models.RiskAssessment) error
	LatestByUser(ctx context.Context, userID uint) (*models.RiskAssessment, error)
}

type assessmentRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
}

// NewAssessmentRepository creates an assessment repository.
func NewAssessmentRepository(db *gorm.DB, cacheService *cache.CacheService) AssessmentRepository {
	return &assessmentRepository{db: db, cache: cacheService}
}

func (r *assessmentRepository) Create(ctx context.Context, a *models.RiskAssessment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return err
	}
	// A fresh run supersedes whatever is cached.
	_ = r.cache.CacheAssessment(ctx, a)
	return nil
}

func (r *assessmentRepository) LatestByUser(ctx context.Context, userID uint) (*models.RiskAssessment, error) {
	if a, err := r.cache.GetAssessment(ctx, userID); err == nil {
		return a, nil
	}

	var a models.RiskAssessment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	return &a, nil
}
