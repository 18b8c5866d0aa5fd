package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ReminderSender is the part of the booking service the scheduler drives.
type ReminderSender interface {
	SendReminders(ctx context.Context, lead time.Duration) (int, error)
}

// Scheduler runs the periodic reminder pass.
type Scheduler struct {
	reminders ReminderSender
	interval  time.Duration
	lead      time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	started   atomic.Bool
	done      chan struct{}
}

func NewScheduler(reminders ReminderSender, interval, lead time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		interval:  interval,
		lead:      lead,
		logger:    logger,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("interval", s.interval),
		zap.Duration("lead", s.lead),
	)

	s.started.Store(true)
	go s.runReminderTask(ctx)
}

// Stop ends the task and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) runReminderTask(ctx context.Context) {
	defer close(s.done)

	s.sendReminders(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sendReminders(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder task cancelled")
			return
		}
	}
}

func (s *Scheduler) sendReminders(ctx context.Context) {
	sent, err := s.reminders.SendReminders(ctx, s.lead)
	if err != nil {
		s.logger.Error("Failed to send reminders", zap.Error(err))
		return
	}
	if sent > 0 {
		s.logger.Info("Reminders sent", zap.Int("count", sent))
	}
}
