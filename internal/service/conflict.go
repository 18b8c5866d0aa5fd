package service

import (
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
)

// ConflictDetector answers overlap questions against a snapshot of a coach's bookings.
// It is advisory; the ledger repeats the same predicate inside its reservation.
type ConflictDetector struct {
	busy []interval.Range
}

// NewConflictDetector keeps only scheduled bookings; other statuses never block.
func NewConflictDetector(bookings []*model.Booking) *ConflictDetector {
	d := &ConflictDetector{}
	for _, b := range bookings {
		if b.Status != model.BookingStatusScheduled {
			continue
		}
		d.busy = append(d.busy, interval.Range{Start: b.ScheduledStart, End: b.ScheduledEnd()})
	}
	return d
}

func (d *ConflictDetector) Overlaps(start, end time.Time) bool {
	for _, r := range d.busy {
		if interval.Overlaps(start, end, r.Start, r.End) {
			return true
		}
	}
	return false
}
