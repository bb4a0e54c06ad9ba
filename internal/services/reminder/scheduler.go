// Package reminder runs the background polling loop that nudges stalled
// applicants. One goroutine, fixed interval, never concurrent with itself.
package reminder

import (
	"context"
	"log"
	"time"
)

// Sender processes one reminder batch and reports how many were sent.
type Sender interface {
	SendDueReminders(ctx context.Context) (int, error)
}

// Scheduler polls for due reminders on a fixed interval.
type Scheduler struct {
	sender   Sender
	interval time.Duration
}

// NewScheduler creates a scheduler. A zero interval defaults to hourly.
func NewScheduler(sender Sender, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{sender: sender, interval: interval}
}

// Run polls until the context is cancelled. Each pass acquires its own
// scoped work and releases it before sleeping; a failed pass is logged
// and the loop continues.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("reminder scheduler started, interval %s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Scheduler) pass(ctx context.Context) {
	sent, err := s.sender.SendDueReminders(ctx)
	if err != nil {
		log.Printf("reminder pass failed: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("reminder pass sent %d reminder(s)", sent)
	}
}
