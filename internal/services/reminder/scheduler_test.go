package reminder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSender struct {
	calls atomic.Int32
	err   error
}

func (s *countingSender) SendDueReminders(_ context.Context) (int, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

func TestRunPollsUntilCancelled(t *testing.T) {
	sender := &countingSender{}
	s := NewScheduler(sender, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return sender.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRunFirstPassIsImmediate(t *testing.T) {
	sender := &countingSender{}
	s := NewScheduler(sender, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The first pass runs before the first tick.
	assert.Eventually(t, func() bool {
		return sender.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRunContinuesPastFailedPass(t *testing.T) {
	sender := &countingSender{err: errors.New("database unavailable")}
	s := NewScheduler(sender, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Eventually(t, func() bool {
		return sender.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestNewSchedulerDefaultsInterval(t *testing.T) {
	s := NewScheduler(&countingSender{}, 0)
	assert.Equal(t, time.Hour, s.interval)
}
