package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
)

const daysInWeek = 7

// CapacityCalculator aggregates a week's availability against its bookings.
// The result is a reporting view and never gates reservations.
type CapacityCalculator struct {
	availability AvailabilityStore
	ledger       BookingLedger
}

func NewCapacityCalculator(availability AvailabilityStore, ledger BookingLedger) *CapacityCalculator {
	return &CapacityCalculator{availability: availability, ledger: ledger}
}

// WeeklyCapacity computes floor(open minutes / session length) over the seven days from
// weekStart, minus scheduled bookings starting inside the week.
func (c *CapacityCalculator) WeeklyCapacity(ctx context.Context, coachID int64, weekStart time.Time, sessionMinutes int) (*model.WeeklyCapacity, error) {
	if !validDuration(sessionMinutes) {
		return nil, fmt.Errorf("session duration %d: %w", sessionMinutes, model.ErrInvalidInterval)
	}

	week, err := c.WeekSchedule(ctx, coachID, weekStart)
	if err != nil {
		return nil, err
	}

	totalMinutes := 0
	booked := 0
	weekEnd := week.WeekStart.AddDate(0, 0, daysInWeek)
	for _, day := range week.Days {
		if !day.Blocked {
			totalMinutes += interval.TotalMinutes(day.Windows)
		}
		for _, b := range day.Bookings {
			if b.Status == model.BookingStatusScheduled &&
				!b.ScheduledStart.Before(week.WeekStart) && b.ScheduledStart.Before(weekEnd) {
				booked++
			}
		}
	}

	capacity := totalMinutes / sessionMinutes
	return &model.WeeklyCapacity{
		WeekStart:      week.WeekStart,
		WeekEnd:        weekEnd.Add(-time.Nanosecond),
		TotalCapacity:  capacity,
		BookedCount:    booked,
		RemainingSpots: max(0, capacity-booked),
	}, nil
}

// WeekSchedule lays out seven UTC days from weekStart with their open windows and the
// scheduled bookings starting on each day.
func (c *CapacityCalculator) WeekSchedule(ctx context.Context, coachID int64, weekStart time.Time) (*model.WeekSchedule, error) {
	start := interval.Day(weekStart)
	last := start.AddDate(0, 0, daysInWeek-1)

	rules, err := c.availability.ListRules(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("get rules: %w", err)
	}

	exceptions, err := c.availability.ExceptionsFor(ctx, coachID, start, last)
	if err != nil {
		return nil, fmt.Errorf("get exceptions: %w", err)
	}

	bookings, err := c.ledger.ListByCoach(ctx, coachID, start, start.AddDate(0, 0, daysInWeek),
		[]model.BookingStatus{model.BookingStatusScheduled})
	if err != nil {
		return nil, fmt.Errorf("get bookings: %w", err)
	}

	week := &model.WeekSchedule{WeekStart: start, Days: make([]model.DaySchedule, daysInWeek)}
	for i := range week.Days {
		date := start.AddDate(0, 0, i)
		day := model.DaySchedule{Date: date}

		for _, exc := range exceptions {
			if exc.Covers(date) {
				day.Blocked = true
				break
			}
		}
		if !day.Blocked {
			day.Windows = activeWindows(rules, date)
		}

		for _, b := range bookings {
			if interval.Day(b.ScheduledStart).Equal(date) {
				day.Bookings = append(day.Bookings, b)
			}
		}

		week.Days[i] = day
	}

	return week, nil
}

// CurrentWeekStart is the Sunday-started week containing now.
func CurrentWeekStart(now time.Time) time.Time {
	return interval.WeekStart(now)
}
