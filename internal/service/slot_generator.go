package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"go.uber.org/zap"
)

const (
	// SlotStep is the fixed candidate granularity, independent of session length.
	SlotStep = 30 * time.Minute
	// DefaultLeadTime keeps slots starting "now" out of listings.
	DefaultLeadTime = 15 * time.Minute
)

// SlotGenerator turns rules, exceptions and scheduled bookings into candidate starts.
type SlotGenerator struct {
	availability AvailabilityStore
	ledger       BookingLedger
	cache        SlotCache
	logger       *zap.Logger
}

func NewSlotGenerator(availability AvailabilityStore, ledger BookingLedger, cache SlotCache, logger *zap.Logger) *SlotGenerator {
	if cache == nil {
		cache = NopSlotCache()
	}
	return &SlotGenerator{
		availability: availability,
		ledger:       ledger,
		cache:        cache,
		logger:       logger,
	}
}

// OpenWindows returns the coalesced open intervals of the UTC day containing date.
// A day touched by any exception has no windows.
func (g *SlotGenerator) OpenWindows(ctx context.Context, coachID int64, date time.Time) ([]interval.Range, error) {
	day := interval.Day(date)

	exceptions, err := g.availability.ExceptionsFor(ctx, coachID, day, day)
	if err != nil {
		return nil, fmt.Errorf("get exceptions: %w", err)
	}
	for _, exc := range exceptions {
		if exc.Covers(day) {
			return nil, nil
		}
	}

	rules, err := g.availability.RulesFor(ctx, coachID, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("get rules: %w", err)
	}

	return activeWindows(rules, day), nil
}

// Generate lists bookable starts for a coach on date, ascending. now is the request's
// single clock read; starts before now+leadTime are dropped.
func (g *SlotGenerator) Generate(ctx context.Context, coachID int64, date time.Time, durationMinutes int, leadTime time.Duration, now time.Time) ([]model.CandidateSlot, error) {
	if !validDuration(durationMinutes) {
		return nil, fmt.Errorf("duration %d: %w", durationMinutes, model.ErrInvalidInterval)
	}

	day := interval.Day(date)

	starts, ok := g.cache.Get(ctx, coachID, day, durationMinutes)
	if !ok {
		var err error
		starts, err = g.candidates(ctx, coachID, day, durationMinutes)
		if err != nil {
			return nil, err
		}
		g.cache.Set(ctx, coachID, day, durationMinutes, starts)
	}

	earliest := now.Add(leadTime)
	slots := make([]model.CandidateSlot, 0, len(starts))
	for _, start := range starts {
		if start.Before(earliest) {
			continue
		}
		slots = append(slots, model.CandidateSlot{Start: start, DurationMinutes: durationMinutes})
	}

	g.logger.Debug("Slots generated",
		zap.Int64("coach_id", coachID),
		zap.String("date", day.Format(time.DateOnly)),
		zap.Int("duration", durationMinutes),
		zap.Bool("cached", ok),
		zap.Int("count", len(slots)),
	)

	return slots, nil
}

// candidates walks each open window in SlotStep increments and drops starts that
// collide with a scheduled booking.
func (g *SlotGenerator) candidates(ctx context.Context, coachID int64, day time.Time, durationMinutes int) ([]time.Time, error) {
	windows, err := g.OpenWindows(ctx, coachID, day)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}

	bookings, err := g.ledger.ListByCoach(ctx, coachID,
		windows[0].Start, windows[len(windows)-1].End,
		[]model.BookingStatus{model.BookingStatusScheduled})
	if err != nil {
		return nil, fmt.Errorf("get bookings: %w", err)
	}
	detector := NewConflictDetector(bookings)

	length := time.Duration(durationMinutes) * time.Minute
	var starts []time.Time
	for _, w := range windows {
		for t := w.Start; !t.Add(length).After(w.End); t = t.Add(SlotStep) {
			if detector.Overlaps(t, t.Add(length)) {
				continue
			}
			starts = append(starts, t)
		}
	}

	return starts, nil
}

// Validate is the defensive re-check done before a write: the interval must start after
// the lead time and sit inside one open window of a non-excepted day. It does not look
// at bookings; the ledger decides that atomically.
func (g *SlotGenerator) Validate(ctx context.Context, coachID int64, start time.Time, durationMinutes int, leadTime time.Duration, now time.Time) error {
	if !validDuration(durationMinutes) {
		return fmt.Errorf("duration %d: %w", durationMinutes, model.ErrInvalidInterval)
	}

	if start.Before(now.Add(leadTime)) {
		return fmt.Errorf("start %s is within lead time: %w", start.UTC().Format(time.RFC3339), model.ErrOutOfWindow)
	}

	requested := interval.Of(start.UTC(), durationMinutes)
	windows, err := g.OpenWindows(ctx, coachID, requested.Start)
	if err != nil {
		return err
	}
	for _, w := range windows {
		if w.Contains(requested) {
			return nil
		}
	}

	return fmt.Errorf("start %s: %w", requested.Start.Format(time.RFC3339), model.ErrOutOfWindow)
}

func activeWindows(rules []*model.AvailabilityRule, day time.Time) []interval.Range {
	windows := make([]interval.Range, 0, len(rules))
	for _, rule := range rules {
		if !rule.Active || rule.DayOfWeek != int(day.Weekday()) {
			continue
		}
		windows = append(windows, rule.WindowOn(day))
	}
	return interval.Coalesce(windows)
}

func validDuration(minutes int) bool {
	return minutes > 0 && minutes <= interval.MinutesPerDay
}
