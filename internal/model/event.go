package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookingCreated     EventType = "booking.created"
	EventBookingRescheduled EventType = "booking.rescheduled"
	EventBookingCancelled   EventType = "booking.cancelled"
	EventBookingCompleted   EventType = "booking.completed"
	EventBookingNoShow      EventType = "booking.no_show"
	EventBookingReminder    EventType = "booking.reminder"
)

// BookingEvent is handed to the notification collaborator after a committed ledger write.
// EventID lets consumers drop duplicates.
type BookingEvent struct {
	EventID         uuid.UUID `json:"event_id"`
	Type            EventType `json:"type"`
	BookingID       int64     `json:"booking_id"`
	CoachID         int64     `json:"coach_id"`
	ClientID        int64     `json:"client_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewBookingEvent snapshots a booking into an event.
func NewBookingEvent(t EventType, b *Booking, reason string, at time.Time) BookingEvent {
	return BookingEvent{
		EventID:         uuid.New(),
		Type:            t,
		BookingID:       b.ID,
		CoachID:         b.CoachID,
		ClientID:        b.ClientID,
		Start:           b.ScheduledStart,
		DurationMinutes: b.DurationMinutes,
		Reason:          reason,
		OccurredAt:      at,
	}
}
