// Package notification tracks incomplete onboarding processes and nudges
// stalled applicants by email. Notifications move to completed only on an
// explicit signal from the owning step, never from the scheduler.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sahel/internal/config"
	"sahel/internal/models"
	"sahel/internal/repositories"
)

// Service manages process notifications and reminder delivery.
type Service struct {
	repo   repositories.NotificationRepository
	users  repositories.UserRepository
	mailer Mailer
	cfg    config.ReminderConfig
	mail   config.MailConfig

	// now is swapped in tests to control reminder timing.
	now func() time.Time
}

// NewService creates a notification service.
func NewService(repo repositories.NotificationRepository, users repositories.UserRepository, mailer Mailer, cfg config.ReminderConfig, mail config.MailConfig) *Service {
	if cfg.MaxReminders == 0 {
		cfg.MaxReminders = 3
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 24 * time.Hour
	}
	return &Service{
		repo:   repo,
		users:  users,
		mailer: mailer,
		cfg:    cfg,
		mail:   mail,
		now:    time.Now,
	}
}

// StartProcess records that a multi-step process has begun (or reached a
// new step) for an applicant, making it visible to the reminder scheduler.
func (s *Service) StartProcess(ctx context.Context, userID uint, processType, lastStep string) (*models.ProcessNotification, error) {
	if existing, err := s.repo.OpenByUserAndType(ctx, userID, processType); err == nil {
		existing.LastStep = lastStep
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	} else if !errors.Is(err, repositories.ErrNotificationNotFound) {
		return nil, err
	}

	n := &models.ProcessNotification{
		UserID:      userID,
		ProcessType: processType,
		Status:      models.NotificationStatusPending,
		LastStep:    lastStep,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// CompleteProcess is the explicit completion signal from the owning step.
func (s *Service) CompleteProcess(ctx context.Context, userID uint, processType string) error {
	n, err := s.repo.OpenByUserAndType(ctx, userID, processType)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return nil
		}
		return err
	}
	n.Status = models.NotificationStatusCompleted
	return s.repo.Update(ctx, n)
}

// SendDueReminders processes one reminder batch. A delivery failure for
// one notification is logged and skipped; it never aborts the batch, and
// the reminder count is only advanced on successful delivery.
func (s *Service) SendDueReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.Due(ctx, now, s.cfg.Cooldown, s.cfg.MaxReminders)
	if err != nil {
		return 0, fmt.Errorf("selecting due reminders: %w", err)
	}

	sent := 0
	for i := range due {
		n := &due[i]
		if err := s.sendReminder(ctx, n, now); err != nil {
			log.Printf("reminder for notification %d (user %d) failed: %v", n.ID, n.UserID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Service) sendReminder(ctx context.Context, n *models.ProcessNotification, now time.Time) error {
	// Re-check the throttle; the selection query and this send are not
	// atomic.
	if n.ReminderCount >= s.cfg.MaxReminders {
		return nil
	}
	if n.LastReminderSent != nil && now.Sub(*n.LastReminderSent) < s.cfg.Cooldown {
		return nil
	}

	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if user.Email == "" {
		return errors.New("user has no email address")
	}

	body := reminderTemplate(n.ProcessType, n.LastStep, user.Username, s.mail.FrontendURL)
	if err := s.mailer.Send(user.Email, reminderSubject(n.ProcessType), body); err != nil {
		return err
	}

	n.ReminderCount++
	n.LastReminderSent = &now
	n.Status = models.NotificationStatusSent
	return s.repo.Update(ctx, n)
}

// NotifyStatus sends a one-off status email (document decision, meeting
// scheduled, account activated). Delivery problems are logged, not
// returned: a failed courtesy email must not fail the pipeline action
// that triggered it.
func (s *Service) NotifyStatus(ctx context.Context, userID uint, subject, htmlBody string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user.Email == "" {
		log.Printf("status notification for user %d skipped: %v", userID, err)
		return
	}
	if err := s.mailer.Send(user.Email, subject, htmlBody); err != nil {
		log.Printf("status notification for user %d failed: %v", userID, err)
	}
}
