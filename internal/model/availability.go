package model

import (
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
)

// AvailabilityRule is a recurring weekly open window of a coach.
type AvailabilityRule struct {
	ID        int64          `json:"id"`
	CoachID   int64          `json:"coach_id"`
	DayOfWeek int            `json:"day_of_week"` // 0 = Sunday, 6 = Saturday
	StartTime interval.Clock `json:"start_time"`
	EndTime   interval.Clock `json:"end_time"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Validate checks the only constraints the store enforces.
func (r *AvailabilityRule) Validate() error {
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return ErrInvalidInterval
	}
	if !r.StartTime.Valid() || !r.EndTime.Valid() || r.StartTime >= r.EndTime {
		return ErrInvalidInterval
	}
	return nil
}

// WindowOn anchors the rule to a concrete UTC date.
func (r *AvailabilityRule) WindowOn(date time.Time) interval.Range {
	return interval.Range{Start: r.StartTime.On(date), End: r.EndTime.On(date)}
}

// AvailabilityException blocks every rule on each day of [StartDate, EndDate].
type AvailabilityException struct {
	ID        int64     `json:"id"`
	CoachID   int64     `json:"coach_id"`
	StartDate time.Time `json:"start_date"` // UTC midnight
	EndDate   time.Time `json:"end_date"`   // UTC midnight, inclusive
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *AvailabilityException) Validate() error {
	if e.EndDate.Before(e.StartDate) {
		return ErrInvalidInterval
	}
	return nil
}

// Covers reports whether the calendar day of date falls inside the exception.
func (e *AvailabilityException) Covers(date time.Time) bool {
	d := interval.Day(date)
	return !d.Before(interval.Day(e.StartDate)) && !d.After(interval.Day(e.EndDate))
}
