package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/model"
	"go.uber.org/zap"
)

const (
	notifyTimeout = 5 * time.Second

	// ReminderKindDayBefore marks the reminder sent within REMINDER_LEAD of the session.
	ReminderKindDayBefore = "24h"
)

// Clock returns the current time. One read is taken per request.
type Clock func() time.Time

// BookRequest is the caller's intent to book a session. Entitlement and payment are
// checked by the caller before it reaches the engine.
type BookRequest struct {
	CoachID         int64
	ClientID        int64
	Start           time.Time
	DurationMinutes int
	PaymentStatus   model.PaymentStatus
	Notes           string
}

// BookingService orchestrates book / reschedule / cancel / finalize against the ledger
// and informs the notification collaborator after each committed write.
type BookingService struct {
	ledger   BookingLedger
	slots    *SlotGenerator
	cache    SlotCache
	notifier Notifier
	leadTime time.Duration
	now      Clock
	logger   *zap.Logger
}

func NewBookingService(
	ledger BookingLedger,
	slots *SlotGenerator,
	cache SlotCache,
	notifier Notifier,
	leadTime time.Duration,
	now Clock,
	logger *zap.Logger,
) *BookingService {
	if cache == nil {
		cache = NopSlotCache()
	}
	if notifier == nil {
		notifier = NopNotifier()
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		ledger:   ledger,
		slots:    slots,
		cache:    cache,
		notifier: notifier,
		leadTime: leadTime,
		now:      now,
		logger:   logger,
	}
}

// ListAvailableSlots returns the bookable start times of a coach on date.
func (s *BookingService) ListAvailableSlots(ctx context.Context, coachID int64, date time.Time, durationMinutes int) ([]time.Time, error) {
	slots, err := s.slots.Generate(ctx, coachID, date, durationMinutes, s.leadTime, s.now())
	if err != nil {
		return nil, err
	}

	starts := make([]time.Time, 0, len(slots))
	for _, slot := range slots {
		starts = append(starts, slot.Start)
	}
	return starts, nil
}

// BookSlot re-checks the window, then reserves atomically through the ledger.
func (s *BookingService) BookSlot(ctx context.Context, req BookRequest) (*model.Booking, error) {
	if req.PaymentStatus == "" {
		req.PaymentStatus = model.PaymentStatusFree
	}
	if req.PaymentStatus != model.PaymentStatusFree && req.PaymentStatus != model.PaymentStatusPaid {
		return nil, fmt.Errorf("payment status %q: %w", req.PaymentStatus, model.ErrInvalidInput)
	}

	start := req.Start.UTC()
	if err := s.slots.Validate(ctx, req.CoachID, start, req.DurationMinutes, s.leadTime, s.now()); err != nil {
		return nil, fmt.Errorf("validate slot: %w", err)
	}

	booking, err := s.ledger.Reserve(ctx, model.ReserveRequest{
		CoachID:         req.CoachID,
		ClientID:        req.ClientID,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		PaymentStatus:   req.PaymentStatus,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("reserve slot: %w", err)
	}
	s.cache.Invalidate(ctx, booking.CoachID)

	s.logger.Info("Session booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("coach_id", booking.CoachID),
		zap.Int64("client_id", booking.ClientID),
		zap.Time("start", booking.ScheduledStart),
		zap.Int("duration", booking.DurationMinutes),
		zap.String("payment_status", string(booking.PaymentStatus)),
	)

	s.dispatch(ctx, model.EventBookingCreated, booking, "")
	return booking, nil
}

// RescheduleBooking moves a scheduled booking. newDuration of zero keeps the current length.
// On any failure the original booking is unchanged.
func (s *BookingService) RescheduleBooking(ctx context.Context, bookingID int64, newStart time.Time, newDuration int) (*model.Booking, error) {
	existing, err := s.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if existing.Status.IsTerminal() {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, existing.Status, model.ErrAlreadyTerminal)
	}

	if newDuration == 0 {
		newDuration = existing.DurationMinutes
	}
	newStart = newStart.UTC()

	if err := s.slots.Validate(ctx, existing.CoachID, newStart, newDuration, s.leadTime, s.now()); err != nil {
		return nil, fmt.Errorf("validate slot: %w", err)
	}

	booking, err := s.ledger.Reschedule(ctx, bookingID, newStart, newDuration)
	if err != nil {
		return nil, fmt.Errorf("reschedule booking: %w", err)
	}
	s.cache.Invalidate(ctx, booking.CoachID)

	s.logger.Info("Session rescheduled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("coach_id", booking.CoachID),
		zap.Time("old_start", existing.ScheduledStart),
		zap.Time("new_start", booking.ScheduledStart),
		zap.Int("duration", booking.DurationMinutes),
	)

	s.dispatch(ctx, model.EventBookingRescheduled, booking, "")
	return booking, nil
}

// CancelBooking is idempotent: cancelling a cancelled booking succeeds without side effects.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, by model.Party, reason string) (*model.Booking, error) {
	if !by.Valid() {
		return nil, fmt.Errorf("cancelled by %q: %w", by, model.ErrInvalidInput)
	}

	booking, changed, err := s.ledger.Cancel(ctx, bookingID, by, reason)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if !changed {
		s.logger.Debug("Booking already cancelled", zap.Int64("booking_id", bookingID))
		return booking, nil
	}
	s.cache.Invalidate(ctx, booking.CoachID)

	s.logger.Info("Session cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("coach_id", booking.CoachID),
		zap.String("cancelled_by", string(by)),
		zap.String("reason", reason),
	)

	s.dispatch(ctx, model.EventBookingCancelled, booking, reason)
	return booking, nil
}

// CompleteBooking records that the session took place.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	return s.finalize(ctx, bookingID, model.BookingStatusCompleted, model.EventBookingCompleted)
}

// MarkNoShow records that the client did not attend.
func (s *BookingService) MarkNoShow(ctx context.Context, bookingID int64) (*model.Booking, error) {
	return s.finalize(ctx, bookingID, model.BookingStatusNoShow, model.EventBookingNoShow)
}

func (s *BookingService) finalize(ctx context.Context, bookingID int64, status model.BookingStatus, eventType model.EventType) (*model.Booking, error) {
	booking, changed, err := s.ledger.Finalize(ctx, bookingID, status)
	if err != nil {
		return nil, fmt.Errorf("finalize booking: %w", err)
	}
	if !changed {
		return booking, nil
	}
	s.cache.Invalidate(ctx, booking.CoachID)

	s.logger.Info("Session finalized",
		zap.Int64("booking_id", booking.ID),
		zap.String("status", string(status)),
	)

	s.dispatch(ctx, eventType, booking, "")
	return booking, nil
}

// AddNote appends an audit note; allowed in every state.
func (s *BookingService) AddNote(ctx context.Context, bookingID int64, note string) (*model.Booking, error) {
	if note == "" {
		return nil, fmt.Errorf("empty note: %w", model.ErrInvalidInput)
	}
	return s.ledger.AppendNote(ctx, bookingID, note)
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	return s.ledger.Get(ctx, bookingID)
}

// ListCoachBookings returns bookings intersecting [from, to). Empty statuses means all.
func (s *BookingService) ListCoachBookings(ctx context.Context, coachID int64, from, to time.Time, statuses []model.BookingStatus) ([]*model.Booking, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("range %s..%s: %w", from.Format(time.RFC3339), to.Format(time.RFC3339), model.ErrInvalidInterval)
	}
	return s.ledger.ListByCoach(ctx, coachID, from.UTC(), to.UTC(), statuses)
}

// ListClientBookings returns a client's bookings; upcoming keeps scheduled ones not yet started.
func (s *BookingService) ListClientBookings(ctx context.Context, clientID int64, statuses []model.BookingStatus, upcoming bool) ([]*model.Booking, error) {
	if upcoming {
		statuses = []model.BookingStatus{model.BookingStatusScheduled}
	}

	bookings, err := s.ledger.ListByClient(ctx, clientID, statuses)
	if err != nil {
		return nil, err
	}
	if !upcoming {
		return bookings, nil
	}

	now := s.now()
	filtered := bookings[:0]
	for _, b := range bookings {
		if !b.ScheduledStart.Before(now) {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// SendReminders dispatches one reminder per scheduled session starting within lead.
// It returns the number of reminders sent in this pass.
func (s *BookingService) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := s.now()
	bookings, err := s.ledger.ListStartingBetween(ctx, now, now.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("list upcoming bookings: %w", err)
	}

	sent := 0
	for _, b := range bookings {
		fresh, err := s.ledger.MarkReminderSent(ctx, b.ID, ReminderKindDayBefore)
		if err != nil {
			s.logger.Error("Failed to record reminder",
				zap.Int64("booking_id", b.ID),
				zap.Error(err))
			continue
		}
		if !fresh {
			continue
		}

		s.dispatch(ctx, model.EventBookingReminder, b, "")
		sent++
	}

	return sent, nil
}

// dispatch is fire-and-forget: the booking is already committed, so failures are only logged.
func (s *BookingService) dispatch(ctx context.Context, eventType model.EventType, b *model.Booking, reason string) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	event := model.NewBookingEvent(eventType, b, reason, s.now())
	if err := s.notifier.Notify(nctx, event); err != nil {
		s.logger.Warn("Failed to dispatch booking event",
			zap.String("event_id", event.EventID.String()),
			zap.String("type", string(eventType)),
			zap.Int64("booking_id", b.ID),
			zap.Error(err),
		)
	}
}
