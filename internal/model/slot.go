package model

import (
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
)

// CandidateSlot is a computed, never persisted, bookable start.
type CandidateSlot struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// WeeklyCapacity is the scarcity view of one week. It never gates bookings.
type WeeklyCapacity struct {
	WeekStart      time.Time `json:"week_start"`
	WeekEnd        time.Time `json:"week_end"`
	TotalCapacity  int       `json:"total_capacity"`
	BookedCount    int       `json:"booked_count"`
	RemainingSpots int       `json:"remaining_spots"`
}

// DaySchedule is one UTC day of a coach's week as seen by the engine.
type DaySchedule struct {
	Date     time.Time        `json:"date"`
	Blocked  bool             `json:"blocked"` // covered by an exception
	Windows  []interval.Range `json:"-"`       // coalesced active rule windows
	Bookings []*Booking       `json:"bookings"`
}

// WeekSchedule is seven consecutive days starting at WeekStart.
type WeekSchedule struct {
	WeekStart time.Time     `json:"week_start"`
	Days      []DaySchedule `json:"days"`
}
