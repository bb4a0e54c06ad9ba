package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"sahel/internal/config"
	"sahel/internal/models"
	"sahel/internal/repositories"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type memNotifRepo struct {
	nextID uint
	items  map[uint]*models.ProcessNotification
}

func newMemNotifRepo() *memNotifRepo {
	return &memNotifRepo{nextID: 1, items: map[uint]*models.ProcessNotification{}}
}

func (r *memNotifRepo) Create(_ context.Context, n *models.ProcessNotification) error {
	n.ID = r.nextID
	r.nextID++
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *memNotifRepo) GetByID(_ context.Context, id uint) (*models.ProcessNotification, error) {
	n, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memNotifRepo) Due(_ context.Context, now time.Time, cooldown time.Duration, maxReminders int) ([]models.ProcessNotification, error) {
	cutoff := now.Add(-cooldown)
	var due []models.ProcessNotification
	for id := uint(1); id < r.nextID; id++ {
		n, ok := r.items[id]
		if !ok {
			continue
		}
		if n.Status != models.NotificationStatusPending && n.Status != models.NotificationStatusSent {
			continue
		}
		if n.ReminderCount >= maxReminders {
			continue
		}
		if n.LastReminderSent != nil && n.LastReminderSent.After(cutoff) {
			continue
		}
		due = append(due, *n)
	}
	return due, nil
}

func (r *memNotifRepo) OpenByUserAndType(_ context.Context, userID uint, processType string) (*models.ProcessNotification, error) {
	for id := uint(1); id < r.nextID; id++ {
		n, ok := r.items[id]
		if !ok {
			continue
		}
		if n.UserID == userID && n.ProcessType == processType && n.Status != models.NotificationStatusCompleted {
			cp := *n
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotificationNotFound
}

func (r *memNotifRepo) Update(_ context.Context, n *models.ProcessNotification) error {
	if _, ok := r.items[n.ID]; !ok {
		return repositories.ErrNotificationNotFound
	}
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

type memUserRepo struct {
	users map[uint]*models.User
}

func (r *memUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) Update(_ context.Context, u *models.User) error {
	r.users[u.ID] = u
	return nil
}

type recordingMailer struct {
	sent    []string // recipient addresses in send order
	failFor map[string]error
}

func (m *recordingMailer) Send(to, _, _ string) error {
	if err, ok := m.failFor[to]; ok {
		return err
	}
	m.sent = append(m.sent, to)
	return nil
}

func newTestService(t *testing.T) (*Service, *memNotifRepo, *recordingMailer) {
	t.Helper()
	repo := newMemNotifRepo()
	users := &memUserRepo{users: map[uint]*models.User{
		1: {Model: gorm.Model{ID: 1}, Username: "karim", Email: "karim@example.com"},
		2: {Model: gorm.Model{ID: 2}, Username: "amina", Email: "amina@example.com"},
		3: {Model: gorm.Model{ID: 3}, Username: "noemail"},
	}}
	mailer := &recordingMailer{failFor: map[string]error{}}
	svc := NewService(repo, users, mailer, config.ReminderConfig{
		Cooldown:     24 * time.Hour,
		MaxReminders: 3,
	}, config.MailConfig{FrontendURL: "http://localhost:3001"})
	return svc, repo, mailer
}

func TestStartProcess(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	n, err := svc.StartProcess(ctx, 1, models.ProcessDocumentUpload, "document_upload")
	assert.NoError(t, err)
	assert.Equal(t, models.NotificationStatusPending, n.Status)
	assert.Equal(t, 0, n.ReminderCount)

	// Starting again for the same open process updates the step instead of
	// creating a second row.
	again, err := svc.StartProcess(ctx, 1, models.ProcessDocumentUpload, "review")
	assert.NoError(t, err)
	assert.Equal(t, n.ID, again.ID)
	assert.Equal(t, "review", again.LastStep)
	assert.Len(t, repo.items, 1)
}

func TestCompleteProcess(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	n, err := svc.StartProcess(ctx, 1, models.ProcessESignature, "requested")
	assert.NoError(t, err)

	assert.NoError(t, svc.CompleteProcess(ctx, 1, models.ProcessESignature))
	assert.Equal(t, models.NotificationStatusCompleted, repo.items[n.ID].Status)

	// Completing when nothing is open is a no-op, not an error.
	assert.NoError(t, svc.CompleteProcess(ctx, 1, models.ProcessESignature))
	assert.NoError(t, svc.CompleteProcess(ctx, 2, models.ProcessAccountActivation))
}

func TestSendDueRemindersDaily(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	n, err := svc.StartProcess(ctx, 1, models.ProcessDocumentUpload, "document_upload")
	assert.NoError(t, err)

	// Newly created notifications are due immediately.
	sent, err := svc.SendDueReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, repo.items[n.ID].ReminderCount)
	assert.Equal(t, models.NotificationStatusSent, repo.items[n.ID].Status)

	// Within the cooldown nothing goes out.
	svc.now = func() time.Time { return start.Add(12 * time.Hour) }
	sent, err = svc.SendDueReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, sent)

	// One reminder per cooldown window until the cap.
	for day := 1; day <= 2; day++ {
		svc.now = func() time.Time { return start.Add(time.Duration(day) * 24 * time.Hour) }
		sent, err = svc.SendDueReminders(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, sent, "day %d", day)
	}
	assert.Equal(t, 3, repo.items[n.ID].ReminderCount)

	// The cap holds no matter how much time passes.
	svc.now = func() time.Time { return start.Add(30 * 24 * time.Hour) }
	sent, err = svc.SendDueReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 3, repo.items[n.ID].ReminderCount)
	assert.Len(t, mailer.sent, 3)
}

func TestSendDueRemindersCompletedExcluded(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	_, err := svc.StartProcess(ctx, 1, models.ProcessDocumentUpload, "document_upload")
	assert.NoError(t, err)
	assert.NoError(t, svc.CompleteProcess(ctx, 1, models.ProcessDocumentUpload))

	sent, err := svc.SendDueReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, mailer.sent)
}

func TestSendDueRemindersFailureDoesNotAdvanceCount(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	n, err := svc.StartProcess(ctx, 1, models.ProcessDocumentUpload, "document_upload")
	assert.NoError(t, err)

	mailer.failFor["karim@example.com"] = errors.New("smtp: connection refused")
	sent, err := svc.SendDueReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, repo.items[n.ID].ReminderCount)
	assert.Nil(t, repo.items[n.ID].LastReminderSent)

	// Next pass retries the same notification once delivery recovers.
	delete(mailer.failFor, "karim@example.com")
	sent, err = svc.SendDueReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, repo.items[n.ID].ReminderCount)
}

func TestSendDueRemindersBatchContinuesPastFailure(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	first, err := svc.StartProcess(ctx, 1, models.ProcessDocumentUpload, "document_upload")
	assert.NoError(t, err)
	second, err := svc.StartProcess(ctx, 2, models.ProcessESignature, "requested")
	assert.NoError(t, err)

	mailer.failFor["karim@example.com"] = errors.New("mailbox full")
	sent, err := svc.SendDueReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, repo.items[first.ID].ReminderCount)
	assert.Equal(t, 1, repo.items[second.ID].ReminderCount)
	assert.Equal(t, []string{"amina@example.com"}, mailer.sent)
}

func TestSendDueRemindersUserWithoutEmailSkipped(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	n, err := svc.StartProcess(ctx, 3, models.ProcessDocumentUpload, "document_upload")
	assert.NoError(t, err)

	sent, err := svc.SendDueReminders(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, repo.items[n.ID].ReminderCount)
	assert.Empty(t, mailer.sent)
}

func TestNotifyStatusDeliveryFailureIsSwallowed(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	mailer.failFor["karim@example.com"] = errors.New("smtp down")
	// Must not panic or propagate.
	svc.NotifyStatus(ctx, 1, "Compte activé", "<p>ok</p>")
	svc.NotifyStatus(ctx, 99, "Utilisateur inconnu", "<p>ok</p>")
	assert.Empty(t, mailer.sent)
}
