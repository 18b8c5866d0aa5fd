package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Storage:          config.StorageMemory,
		HTTPAddr:         "127.0.0.1:0",
		LeadTimeMinutes:  15,
		ReminderInterval: time.Hour,
		ReminderLead:     24 * time.Hour,
	}
}

func TestNewWithMemoryStorage(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Nil(t, a.Pool)
	require.NoError(t, a.Migrate(ctx))

	rules, err := a.Availability.SeedDefaults(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rules, 5)

	sent, err := a.Bookings.SendReminders(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestServeStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

type countingSender struct {
	calls atomic.Int32
	err   error
}

func (c *countingSender) SendReminders(context.Context, time.Duration) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSchedulerRunsImmediatelyAndOnTick(t *testing.T) {
	sender := &countingSender{}
	s := NewScheduler(sender, 10*time.Millisecond, time.Hour, zap.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return sender.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := sender.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, sender.calls.Load())

	// A second stop is harmless.
	s.Stop()
}

func TestSchedulerLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sender := &countingSender{err: errors.New("db down")}
	s := NewScheduler(sender, time.Hour, time.Hour, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Stop()

	assert.Equal(t, "Failed to send reminders", logs.All()[0].Message)
}

func TestStopWithoutStart(t *testing.T) {
	s := NewScheduler(&countingSender{}, time.Minute, time.Hour, zap.NewNop())
	s.Stop()
}

func TestNewLoggerWithFile(t *testing.T) {
	path := t.TempDir() + "/coachd.log"
	logger := NewLogger("production", path)
	logger.Info("hello")
	_ = logger.Sync()
	assert.FileExists(t, path)
}
