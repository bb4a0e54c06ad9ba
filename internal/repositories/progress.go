package repositories

import (
	"context"
	"errors"
	"time"

	"sahel/internal/models"

	"gorm.io/gorm"
)

// ProgressRepository tracks per-step application progress rows.
type ProgressRepository interface {
	// Track creates the row for a step if it does not exist, otherwise
	// updates its status and notes. Completed steps get a timestamp.
	Track(ctx context.Context, userID uint, step, status, notes string) error
	ListByUser(ctx context.Context, userID uint) ([]models.ApplicationProgress, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Track(ctx context.Context, userID uint, step, status, notes string) error {
	var row models.ApplicationProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND step = ?", userID, step).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		row = models.ApplicationProgress{UserID: userID, Step: step}
	}

	row.Status = status
	if notes != "" {
		row.Notes = notes
	}
	if status == "completed" && row.CompletedAt == nil {
		now := time.Now()
		row.CompletedAt = &now
	}
	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *progressRepository) ListByUser(ctx context.Context, userID uint) ([]models.ApplicationProgress, error) {
	var rows []models.ApplicationProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
