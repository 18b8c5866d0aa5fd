package model

import (
	"testing"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTerminal(t *testing.T) {
	assert.False(t, BookingStatusScheduled.IsTerminal())
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.True(t, BookingStatusNoShow.IsTerminal())
	assert.False(t, BookingStatus("pending").Valid())
}

func TestRuleValidate(t *testing.T) {
	rule := &AvailabilityRule{DayOfWeek: 1, StartTime: interval.NewClock(9, 0), EndTime: interval.NewClock(12, 0)}
	assert.NoError(t, rule.Validate())

	rule.EndTime = rule.StartTime
	assert.ErrorIs(t, rule.Validate(), ErrInvalidInterval)

	rule.EndTime = interval.NewClock(24, 0)
	rule.DayOfWeek = 7
	assert.ErrorIs(t, rule.Validate(), ErrInvalidInterval)
}

func TestExceptionCoversInclusiveRange(t *testing.T) {
	exc := &AvailabilityException{
		StartDate: time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC),
	}

	assert.False(t, exc.Covers(time.Date(2026, time.October, 11, 23, 59, 0, 0, time.UTC)))
	assert.True(t, exc.Covers(time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)))
	assert.True(t, exc.Covers(time.Date(2026, time.October, 14, 23, 30, 0, 0, time.UTC)))
	assert.False(t, exc.Covers(time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)))

	exc.EndDate = exc.StartDate.AddDate(0, 0, -1)
	assert.ErrorIs(t, exc.Validate(), ErrInvalidInterval)
}

func TestCancellationNote(t *testing.T) {
	assert.Equal(t, "Cancelled by client", CancellationNote(PartyClient, ""))
	assert.Equal(t, "Cancelled by coach: sick", CancellationNote(PartyCoach, "sick"))
	assert.Equal(t, "a\nb", AppendNote("a", "b"))
	assert.Equal(t, "b", AppendNote("", "b"))
}

func TestBookingCloneIsDeep(t *testing.T) {
	by := PartyCoach
	b := &Booking{ID: 1, CancelledBy: &by}
	c := b.Clone()
	*c.CancelledBy = PartyClient
	assert.Equal(t, PartyCoach, *b.CancelledBy)
}
