package repositories

import (
	"context"
	"errors"
	"time"

	"sahel/internal/models"

	"gorm.io/gorm"
)

// ErrNotificationNotFound is returned when no process notification matches.
var ErrNotificationNotFound = errors.New("process notification not found")

// NotificationRepository stores process notifications for the reminder
// scheduler and the owning steps.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.ProcessNotification) error
	GetByID(ctx context.Context, id uint) (*models.ProcessNotification, error)
	// Due returns notifications eligible for a reminder: not completed,
	// under the reminder cap, and outside the cooldown window.
	Due(ctx context.Context, now time.Time, cooldown time.Duration, maxReminders int) ([]models.ProcessNotification, error)
	// OpenByUserAndType returns the applicant's uncompleted notification
	// for one process, if any.
	OpenByUserAndType(ctx context.Context, userID uint, processType string) (*models.ProcessNotification, error)
	Update(ctx context.Context, n *models.ProcessNotification) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.ProcessNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*models.ProcessNotification, error) {
	var n models.ProcessNotification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) Due(ctx context.Context, now time.Time, cooldown time.Duration, maxReminders int) ([]models.ProcessNotification, error) {
	var due []models.ProcessNotification
	cutoff := now.Add(-cooldown)
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.NotificationStatusPending, models.NotificationStatusSent}).
		Where("reminder_count < ?", maxReminders).
		Where("last_reminder_sent IS NULL OR last_reminder_sent <= ?", cutoff).
		Order("created_at ASC").
		Find(&due).Error
	return due, err
}

func (r *notificationRepository) OpenByUserAndType(ctx context.Context, userID uint, processType string) (*models.ProcessNotification, error) {
	var n models.ProcessNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND process_type = ? AND status <> ?",
			userID, processType, models.NotificationStatusCompleted).
		Order("created_at DESC").
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) Update(ctx context.Context, n *models.ProcessNotification) error {
	return r.db.WithContext(ctx).Save(n).Error
}
