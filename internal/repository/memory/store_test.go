package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

func reserve(t *testing.T, s *Store, coachID int64, start time.Time, minutes int) *model.Booking {
	t.Helper()
	b, err := s.Reserve(context.Background(), model.ReserveRequest{
		CoachID:         coachID,
		ClientID:        100,
		Start:           start,
		DurationMinutes: minutes,
		PaymentStatus:   model.PaymentStatusFree,
	})
	require.NoError(t, err)
	return b
}

func TestReserveRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first := reserve(t, s, 1, monday.Add(10*time.Hour), 60)
	assert.Equal(t, model.BookingStatusScheduled, first.Status)

	_, err := s.Reserve(ctx, model.ReserveRequest{CoachID: 1, ClientID: 2, Start: monday.Add(10*time.Hour + 30*time.Minute), DurationMinutes: 60})
	assert.ErrorIs(t, err, model.ErrSlotTaken)

	// Adjacent intervals do not overlap.
	reserve(t, s, 1, monday.Add(11*time.Hour), 60)
	// Another coach is independent.
	reserve(t, s, 2, monday.Add(10*time.Hour), 60)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	start := monday.Add(14 * time.Hour)

	const attempts = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		conflict int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(client int64) {
			defer wg.Done()
			_, err := s.Reserve(ctx, model.ReserveRequest{CoachID: 7, ClientID: client, Start: start, DurationMinutes: 60})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if assert.ErrorIs(t, err, model.ErrSlotTaken) {
				conflict++
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, attempts-1, conflict)

	scheduled, err := s.ListByCoach(ctx, 7, monday, monday.AddDate(0, 0, 1), []model.BookingStatus{model.BookingStatusScheduled})
	require.NoError(t, err)
	assert.Len(t, scheduled, 1)
}

func TestRescheduleExcludesItself(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	b := reserve(t, s, 1, monday.Add(10*time.Hour), 60)
	reserve(t, s, 1, monday.Add(12*time.Hour), 60)

	// Shift by 30 minutes overlaps only its own old interval.
	moved, err := s.Reschedule(ctx, b.ID, monday.Add(10*time.Hour+30*time.Minute), 60)
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.ID)
	assert.Equal(t, monday.Add(10*time.Hour+30*time.Minute), moved.ScheduledStart)

	_, err = s.Reschedule(ctx, b.ID, monday.Add(12*time.Hour), 60)
	assert.ErrorIs(t, err, model.ErrSlotTaken)

	unchanged, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, moved.ScheduledStart, unchanged.ScheduledStart)
}

func TestCancelIsIdempotentAndFreesTime(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	b := reserve(t, s, 1, monday.Add(9*time.Hour), 60)

	cancelled, changed, err := s.Cancel(ctx, b.ID, model.PartyClient, "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, "Cancelled by client", cancelled.Notes)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Nil(t, cancelled.CancellationReason)

	again, changed, err := s.Cancel(ctx, b.ID, model.PartyCoach, "late")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.PartyClient, *again.CancelledBy)

	reserve(t, s, 1, monday.Add(9*time.Hour), 60)

	_, err = s.Reschedule(ctx, b.ID, monday.Add(15*time.Hour), 60)
	assert.ErrorIs(t, err, model.ErrAlreadyTerminal)
}

func TestFinalizeTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	b := reserve(t, s, 1, monday.Add(9*time.Hour), 60)

	done, changed, err := s.Finalize(ctx, b.ID, model.BookingStatusCompleted)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.BookingStatusCompleted, done.Status)

	_, changed, err = s.Finalize(ctx, b.ID, model.BookingStatusCompleted)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = s.Finalize(ctx, b.ID, model.BookingStatusNoShow)
	assert.ErrorIs(t, err, model.ErrAlreadyTerminal)

	_, _, err = s.Cancel(ctx, b.ID, model.PartyCoach, "")
	assert.ErrorIs(t, err, model.ErrAlreadyTerminal)

	_, _, err = s.Finalize(ctx, b.ID, model.BookingStatusScheduled)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, _, err = s.Finalize(ctx, 999, model.BookingStatusCompleted)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListByCoachIntersectsRange(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	late := reserve(t, s, 1, monday.Add(23*time.Hour+30*time.Minute), 60)
	early := reserve(t, s, 1, monday.Add(8*time.Hour), 30)

	got, err := s.ListByCoach(ctx, 1, monday.AddDate(0, 0, 1), monday.AddDate(0, 0, 2), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, late.ID, got[0].ID)

	got, err = s.ListByCoach(ctx, 1, monday, monday.AddDate(0, 0, 1), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
}

func TestMarkReminderSentOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	b := reserve(t, s, 1, monday.Add(9*time.Hour), 60)

	fresh, err := s.MarkReminderSent(ctx, b.ID, "24h")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.MarkReminderSent(ctx, b.ID, "24h")
	require.NoError(t, err)
	assert.False(t, fresh)

	_, err = s.Reschedule(ctx, b.ID, monday.Add(11*time.Hour), 60)
	require.NoError(t, err)

	fresh, err = s.MarkReminderSent(ctx, b.ID, "24h")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestRulesAndExceptions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	rule := &model.AvailabilityRule{CoachID: 1, DayOfWeek: 1, StartTime: interval.NewClock(9, 0), EndTime: interval.NewClock(12, 0), Active: true}
	require.NoError(t, s.UpsertRule(ctx, rule))
	assert.NotZero(t, rule.ID)

	rule.EndTime = interval.NewClock(13, 0)
	require.NoError(t, s.UpsertRule(ctx, rule))

	rules, err := s.RulesFor(ctx, 1, time.Monday)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, interval.NewClock(13, 0), rules[0].EndTime)

	rules, err = s.RulesFor(ctx, 1, time.Tuesday)
	require.NoError(t, err)
	assert.Empty(t, rules)

	exc := &model.AvailabilityException{CoachID: 1, StartDate: monday, EndDate: monday.AddDate(0, 0, 2)}
	require.NoError(t, s.CreateException(ctx, exc))

	found, err := s.ExceptionsFor(ctx, 1, monday.AddDate(0, 0, 2), monday.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = s.ExceptionsFor(ctx, 1, monday.AddDate(0, 0, 3), monday.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, s.DeleteException(ctx, exc.ID))
	assert.ErrorIs(t, s.DeleteException(ctx, exc.ID), model.ErrNotFound)
	require.NoError(t, s.DeleteRule(ctx, rule.ID))
	_, err = s.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
