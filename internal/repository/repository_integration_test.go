package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/Freeeeeet/coach_booking/internal/repository/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupPool connects to TEST_DB_DSN, migrates from scratch and empties the tables.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, db, "."))

	_, err = pool.Exec(ctx, `TRUNCATE booking_reminders, bookings, availability_exceptions, coach_availability RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return pool
}

var testMonday = time.Date(2030, time.January, 7, 0, 0, 0, 0, time.UTC)

func TestBookingRepositoryConcurrentReserve(t *testing.T) {
	pool := setupPool(t)
	repo := NewBookingRepository(pool, zap.NewNop())
	ctx := context.Background()

	start := testMonday.Add(14 * time.Hour)
	const attempts = 10

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(client int64) {
			defer wg.Done()
			_, err := repo.Reserve(ctx, model.ReserveRequest{
				CoachID: 1, ClientID: client, Start: start, DurationMinutes: 60,
				PaymentStatus: model.PaymentStatusFree,
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, model.ErrSlotTaken)
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestBookingRepositoryLifecycle(t *testing.T) {
	pool := setupPool(t)
	repo := NewBookingRepository(pool, zap.NewNop())
	ctx := context.Background()

	b, err := repo.Reserve(ctx, model.ReserveRequest{
		CoachID: 1, ClientID: 2, Start: testMonday.Add(10 * time.Hour), DurationMinutes: 60,
		PaymentStatus: model.PaymentStatusPaid, Notes: "first session",
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusScheduled, b.Status)
	assert.Equal(t, testMonday.Add(10*time.Hour), b.ScheduledStart)

	other, err := repo.Reserve(ctx, model.ReserveRequest{
		CoachID: 1, ClientID: 3, Start: testMonday.Add(12 * time.Hour), DurationMinutes: 60,
		PaymentStatus: model.PaymentStatusFree,
	})
	require.NoError(t, err)

	moved, err := repo.Reschedule(ctx, b.ID, testMonday.Add(10*time.Hour+30*time.Minute), 60)
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.ID)

	_, err = repo.Reschedule(ctx, b.ID, testMonday.Add(11*time.Hour+30*time.Minute), 60)
	assert.ErrorIs(t, err, model.ErrSlotTaken)

	cancelled, changed, err := repo.Cancel(ctx, other.ID, model.PartyCoach, "sick")
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "sick", *cancelled.CancellationReason)
	assert.Equal(t, "Cancelled by coach: sick", cancelled.Notes)

	_, changed, err = repo.Cancel(ctx, other.ID, model.PartyClient, "")
	require.NoError(t, err)
	assert.False(t, changed)

	// The cancelled interval is free again.
	_, err = repo.Reschedule(ctx, b.ID, testMonday.Add(12*time.Hour), 60)
	require.NoError(t, err)

	done, changed, err := repo.Finalize(ctx, b.ID, model.BookingStatusCompleted)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.BookingStatusCompleted, done.Status)

	_, _, err = repo.Finalize(ctx, b.ID, model.BookingStatusNoShow)
	assert.ErrorIs(t, err, model.ErrAlreadyTerminal)

	_, err = repo.Get(ctx, 999999)
	assert.ErrorIs(t, err, model.ErrNotFound)

	list, err := repo.ListByCoach(ctx, 1, testMonday, testMonday.AddDate(0, 0, 1), nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.ListByCoach(ctx, 1, testMonday, testMonday.AddDate(0, 0, 1),
		[]model.BookingStatus{model.BookingStatusScheduled})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookingRepositoryReminders(t *testing.T) {
	pool := setupPool(t)
	repo := NewBookingRepository(pool, zap.NewNop())
	ctx := context.Background()

	b, err := repo.Reserve(ctx, model.ReserveRequest{
		CoachID: 5, ClientID: 6, Start: testMonday.Add(9 * time.Hour), DurationMinutes: 30,
		PaymentStatus: model.PaymentStatusFree,
	})
	require.NoError(t, err)

	upcoming, err := repo.ListStartingBetween(ctx, testMonday, testMonday.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)

	fresh, err := repo.MarkReminderSent(ctx, b.ID, "24h")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = repo.MarkReminderSent(ctx, b.ID, "24h")
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestAvailabilityRepository(t *testing.T) {
	pool := setupPool(t)
	repo := NewAvailabilityRepository(pool, zap.NewNop())
	ctx := context.Background()

	rule := &model.AvailabilityRule{
		CoachID: 1, DayOfWeek: 1,
		StartTime: interval.NewClock(9, 0), EndTime: interval.NewClock(24, 0),
		Active: true,
	}
	require.NoError(t, repo.UpsertRule(ctx, rule))
	assert.NotZero(t, rule.ID)

	rules, err := repo.RulesFor(ctx, 1, time.Monday)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, interval.NewClock(24, 0), rules[0].EndTime)

	rule.Active = false
	require.NoError(t, repo.UpsertRule(ctx, rule))
	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	exc := &model.AvailabilityException{CoachID: 1, StartDate: testMonday, EndDate: testMonday.AddDate(0, 0, 1), Reason: "holiday"}
	require.NoError(t, repo.CreateException(ctx, exc))

	found, err := repo.ExceptionsFor(ctx, 1, testMonday.AddDate(0, 0, 1), testMonday.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].StartDate.Equal(testMonday))

	require.NoError(t, repo.DeleteException(ctx, exc.ID))
	assert.ErrorIs(t, repo.DeleteException(ctx, exc.ID), model.ErrNotFound)
	require.NoError(t, repo.DeleteRule(ctx, rule.ID))
	assert.ErrorIs(t, repo.DeleteRule(ctx, rule.ID), model.ErrNotFound)
}
