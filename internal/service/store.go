package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/model"
)

// AvailabilityStore persists weekly rules and date-range exceptions per coach.
type AvailabilityStore interface {
	RulesFor(ctx context.Context, coachID int64, day time.Weekday) ([]*model.AvailabilityRule, error)
	ListRules(ctx context.Context, coachID int64) ([]*model.AvailabilityRule, error)
	GetRule(ctx context.Context, id int64) (*model.AvailabilityRule, error)
	// UpsertRule inserts when rule.ID is zero, otherwise updates the existing rule.
	UpsertRule(ctx context.Context, rule *model.AvailabilityRule) error
	DeleteRule(ctx context.Context, id int64) error

	// ExceptionsFor returns exceptions intersecting the inclusive date range [from, to].
	ExceptionsFor(ctx context.Context, coachID int64, from, to time.Time) ([]*model.AvailabilityException, error)
	GetException(ctx context.Context, id int64) (*model.AvailabilityException, error)
	CreateException(ctx context.Context, exc *model.AvailabilityException) error
	DeleteException(ctx context.Context, id int64) error
}

// BookingLedger is the authoritative booking store. Reserve and Reschedule are atomic
// check-and-write operations with respect to other writers of the same coach.
type BookingLedger interface {
	Reserve(ctx context.Context, req model.ReserveRequest) (*model.Booking, error)
	Reschedule(ctx context.Context, bookingID int64, newStart time.Time, newDuration int) (*model.Booking, error)
	// Cancel moves scheduled -> cancelled. changed is false when it was already cancelled.
	Cancel(ctx context.Context, bookingID int64, by model.Party, reason string) (b *model.Booking, changed bool, err error)
	// Finalize moves scheduled -> completed or no_show.
	Finalize(ctx context.Context, bookingID int64, status model.BookingStatus) (b *model.Booking, changed bool, err error)
	AppendNote(ctx context.Context, bookingID int64, note string) (*model.Booking, error)

	Get(ctx context.Context, bookingID int64) (*model.Booking, error)
	// ListByCoach returns bookings whose interval intersects [from, to), ordered by start.
	ListByCoach(ctx context.Context, coachID int64, from, to time.Time, statuses []model.BookingStatus) ([]*model.Booking, error)
	ListByClient(ctx context.Context, clientID int64, statuses []model.BookingStatus) ([]*model.Booking, error)
	// ListStartingBetween returns scheduled bookings of all coaches starting in [from, to).
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	// MarkReminderSent records a reminder; false means it had already been recorded.
	MarkReminderSent(ctx context.Context, bookingID int64, kind string) (bool, error)
}

// Notifier is the external notification collaborator. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, event model.BookingEvent) error
}

// SlotCache holds advisory slot listings before lead-time filtering.
type SlotCache interface {
	Get(ctx context.Context, coachID int64, date time.Time, durationMinutes int) ([]time.Time, bool)
	Set(ctx context.Context, coachID int64, date time.Time, durationMinutes int, starts []time.Time)
	Invalidate(ctx context.Context, coachID int64)
}

type nopSlotCache struct{}

func (nopSlotCache) Get(context.Context, int64, time.Time, int) ([]time.Time, bool) { return nil, false }
func (nopSlotCache) Set(context.Context, int64, time.Time, int, []time.Time)        {}
func (nopSlotCache) Invalidate(context.Context, int64)                             {}

// NopSlotCache disables listing caching.
func NopSlotCache() SlotCache { return nopSlotCache{} }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.BookingEvent) error { return nil }

// NopNotifier drops every event.
func NopNotifier() Notifier { return nopNotifier{} }
