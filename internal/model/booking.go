package model

import "time"

type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "scheduled" // initial state
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// IsTerminal reports whether no further status transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s != BookingStatusScheduled
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusScheduled, BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

// PaymentStatus is supplied by the payment collaborator; the engine only records it.
type PaymentStatus string

const (
	PaymentStatusFree PaymentStatus = "free"
	PaymentStatusPaid PaymentStatus = "paid"
)

// Party identifies who initiated a cancellation.
type Party string

const (
	PartyCoach  Party = "coach"
	PartyClient Party = "client"
)

func (p Party) Valid() bool {
	return p == PartyCoach || p == PartyClient
}

type Booking struct {
	ID                 int64         `json:"id"`
	CoachID            int64         `json:"coach_id"`
	ClientID           int64         `json:"client_id"`
	ScheduledStart     time.Time     `json:"scheduled_start"` // UTC
	DurationMinutes    int           `json:"duration_minutes"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	Notes              string        `json:"notes"`
	CancelledBy        *Party        `json:"cancelled_by,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ScheduledEnd is the exclusive end of the booked interval.
func (b *Booking) ScheduledEnd() time.Time {
	return b.ScheduledStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Clone returns a deep copy so stores never hand out their own records.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.CancelledBy != nil {
		by := *b.CancelledBy
		c.CancelledBy = &by
	}
	if b.CancellationReason != nil {
		reason := *b.CancellationReason
		c.CancellationReason = &reason
	}
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

// ReserveRequest is the input of the ledger's atomic reserve-if-free write.
type ReserveRequest struct {
	CoachID         int64
	ClientID        int64
	Start           time.Time
	DurationMinutes int
	PaymentStatus   PaymentStatus
	Notes           string
}

// CancellationNote is the audit line appended to a booking's notes on cancellation.
func CancellationNote(by Party, reason string) string {
	if reason == "" {
		return "Cancelled by " + string(by)
	}
	return "Cancelled by " + string(by) + ": " + reason
}

// AppendNote joins an audit line onto existing notes.
func AppendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
