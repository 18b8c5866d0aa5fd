// Package memory is a process-local implementation of the availability store and the
// booking ledger. Reservations are serialized per coach, so it is safe for concurrent use
// within a single process.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
)

type reminderKey struct {
	bookingID int64
	kind      string
}

type Store struct {
	now func() time.Time

	mu         sync.RWMutex
	seq        int64
	rules      map[int64]*model.AvailabilityRule
	exceptions map[int64]*model.AvailabilityException
	bookings   map[int64]*model.Booking
	reminders  map[reminderKey]time.Time

	lockMu     sync.Mutex
	coachLocks map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		rules:      make(map[int64]*model.AvailabilityRule),
		exceptions: make(map[int64]*model.AvailabilityException),
		bookings:   make(map[int64]*model.Booking),
		reminders:  make(map[reminderKey]time.Time),
		coachLocks: make(map[int64]*sync.Mutex),
	}
}

// coachLock returns the mutex serializing ledger writes of one coach.
func (s *Store) coachLock(coachID int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.coachLocks[coachID]
	if !ok {
		l = &sync.Mutex{}
		s.coachLocks[coachID] = l
	}
	return l
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// Availability

func (s *Store) RulesFor(_ context.Context, coachID int64, day time.Weekday) ([]*model.AvailabilityRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.AvailabilityRule
	for _, r := range s.rules {
		if r.CoachID == coachID && r.DayOfWeek == int(day) {
			c := *r
			out = append(out, &c)
		}
	}
	sortRules(out)
	return out, nil
}

func (s *Store) ListRules(_ context.Context, coachID int64) ([]*model.AvailabilityRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.AvailabilityRule
	for _, r := range s.rules {
		if r.CoachID == coachID {
			c := *r
			out = append(out, &c)
		}
	}
	sortRules(out)
	return out, nil
}

func (s *Store) GetRule(_ context.Context, id int64) (*model.AvailabilityRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %d: %w", id, model.ErrNotFound)
	}
	c := *r
	return &c, nil
}

func (s *Store) UpsertRule(_ context.Context, rule *model.AvailabilityRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rule.ID == 0 {
		rule.ID = s.nextID()
		rule.CreatedAt = now
	} else {
		existing, ok := s.rules[rule.ID]
		if !ok {
			return fmt.Errorf("rule %d: %w", rule.ID, model.ErrNotFound)
		}
		rule.CreatedAt = existing.CreatedAt
	}
	rule.UpdatedAt = now

	c := *rule
	s.rules[rule.ID] = &c
	return nil
}

func (s *Store) DeleteRule(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("rule %d: %w", id, model.ErrNotFound)
	}
	delete(s.rules, id)
	return nil
}

func (s *Store) ExceptionsFor(_ context.Context, coachID int64, from, to time.Time) ([]*model.AvailabilityException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = interval.Day(from), interval.Day(to)
	var out []*model.AvailabilityException
	for _, e := range s.exceptions {
		if e.CoachID != coachID || e.EndDate.Before(from) || e.StartDate.After(to) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *model.AvailabilityException) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (s *Store) GetException(_ context.Context, id int64) (*model.AvailabilityException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exceptions[id]
	if !ok {
		return nil, fmt.Errorf("exception %d: %w", id, model.ErrNotFound)
	}
	c := *e
	return &c, nil
}

func (s *Store) CreateException(_ context.Context, exc *model.AvailabilityException) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exc.ID = s.nextID()
	exc.CreatedAt = s.now()
	c := *exc
	s.exceptions[exc.ID] = &c
	return nil
}

func (s *Store) DeleteException(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exceptions[id]; !ok {
		return fmt.Errorf("exception %d: %w", id, model.ErrNotFound)
	}
	delete(s.exceptions, id)
	return nil
}

// Ledger

func (s *Store) Reserve(_ context.Context, req model.ReserveRequest) (*model.Booking, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("duration %d: %w", req.DurationMinutes, model.ErrInvalidInterval)
	}

	l := s.coachLock(req.CoachID)
	l.Lock()
	defer l.Unlock()

	start := req.Start.UTC()
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	// The coach lock keeps other reservations of this coach out between the check and
	// the insert; cancels and finalizes only ever free time.
	s.mu.RLock()
	taken := s.conflictLocked(req.CoachID, start, end, 0)
	s.mu.RUnlock()
	if taken {
		return nil, model.ErrSlotTaken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b := &model.Booking{
		ID:              s.nextID(),
		CoachID:         req.CoachID,
		ClientID:        req.ClientID,
		ScheduledStart:  start,
		DurationMinutes: req.DurationMinutes,
		Status:          model.BookingStatusScheduled,
		PaymentStatus:   req.PaymentStatus,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.bookings[b.ID] = b
	return b.Clone(), nil
}

func (s *Store) Reschedule(ctx context.Context, bookingID int64, newStart time.Time, newDuration int) (*model.Booking, error) {
	if newDuration <= 0 {
		return nil, fmt.Errorf("duration %d: %w", newDuration, model.ErrInvalidInterval)
	}

	current, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	l := s.coachLock(current.CoachID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}
	if b.Status.IsTerminal() {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, b.Status, model.ErrAlreadyTerminal)
	}

	start := newStart.UTC()
	end := start.Add(time.Duration(newDuration) * time.Minute)
	if s.conflictLocked(b.CoachID, start, end, b.ID) {
		return nil, model.ErrSlotTaken
	}

	b.ScheduledStart = start
	b.DurationMinutes = newDuration
	b.UpdatedAt = s.now()
	for k := range s.reminders {
		if k.bookingID == b.ID {
			delete(s.reminders, k)
		}
	}
	return b.Clone(), nil
}

func (s *Store) Cancel(_ context.Context, bookingID int64, by model.Party, reason string) (*model.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, false, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}

	switch b.Status {
	case model.BookingStatusCancelled:
		return b.Clone(), false, nil
	case model.BookingStatusScheduled:
	default:
		return nil, false, fmt.Errorf("booking %d is %s: %w", bookingID, b.Status, model.ErrAlreadyTerminal)
	}

	now := s.now()
	party := by
	b.Status = model.BookingStatusCancelled
	b.CancelledBy = &party
	b.CancelledAt = &now
	if reason != "" {
		r := reason
		b.CancellationReason = &r
	}
	b.Notes = model.AppendNote(b.Notes, model.CancellationNote(by, reason))
	b.UpdatedAt = now
	return b.Clone(), true, nil
}

func (s *Store) Finalize(_ context.Context, bookingID int64, status model.BookingStatus) (*model.Booking, bool, error) {
	if status != model.BookingStatusCompleted && status != model.BookingStatusNoShow {
		return nil, false, fmt.Errorf("finalize to %q: %w", status, model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, false, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}

	switch b.Status {
	case status:
		return b.Clone(), false, nil
	case model.BookingStatusScheduled:
	default:
		return nil, false, fmt.Errorf("booking %d is %s: %w", bookingID, b.Status, model.ErrAlreadyTerminal)
	}

	b.Status = status
	b.UpdatedAt = s.now()
	return b.Clone(), true, nil
}

func (s *Store) AppendNote(_ context.Context, bookingID int64, note string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}
	b.Notes = model.AppendNote(b.Notes, note)
	b.UpdatedAt = s.now()
	return b.Clone(), nil
}

func (s *Store) Get(_ context.Context, bookingID int64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}
	return b.Clone(), nil
}

func (s *Store) ListByCoach(_ context.Context, coachID int64, from, to time.Time, statuses []model.BookingStatus) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Booking
	for _, b := range s.bookings {
		if b.CoachID != coachID || !matchStatus(b.Status, statuses) {
			continue
		}
		if !interval.Overlaps(b.ScheduledStart, b.ScheduledEnd(), from, to) {
			continue
		}
		out = append(out, b.Clone())
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) ListByClient(_ context.Context, clientID int64, statuses []model.BookingStatus) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Booking
	for _, b := range s.bookings {
		if b.ClientID == clientID && matchStatus(b.Status, statuses) {
			out = append(out, b.Clone())
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) ListStartingBetween(_ context.Context, from, to time.Time) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Booking
	for _, b := range s.bookings {
		if b.Status != model.BookingStatusScheduled {
			continue
		}
		if b.ScheduledStart.Before(from) || !b.ScheduledStart.Before(to) {
			continue
		}
		out = append(out, b.Clone())
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) MarkReminderSent(_ context.Context, bookingID int64, kind string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[bookingID]; !ok {
		return false, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}

	key := reminderKey{bookingID: bookingID, kind: kind}
	if _, sent := s.reminders[key]; sent {
		return false, nil
	}
	s.reminders[key] = s.now()
	return true, nil
}

// conflictLocked reports whether [start, end) overlaps a scheduled booking of the coach
// other than skipID. Caller holds s.mu for reading.
func (s *Store) conflictLocked(coachID int64, start, end time.Time, skipID int64) bool {
	for _, b := range s.bookings {
		if b.ID == skipID || b.CoachID != coachID || b.Status != model.BookingStatusScheduled {
			continue
		}
		if interval.Overlaps(start, end, b.ScheduledStart, b.ScheduledEnd()) {
			return true
		}
	}
	return false
}

func matchStatus(status model.BookingStatus, statuses []model.BookingStatus) bool {
	return len(statuses) == 0 || slices.Contains(statuses, status)
}

func sortBookings(bookings []*model.Booking) {
	slices.SortFunc(bookings, func(a, b *model.Booking) int {
		if c := a.ScheduledStart.Compare(b.ScheduledStart); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
}

func sortRules(rules []*model.AvailabilityRule) {
	slices.SortFunc(rules, func(a, b *model.AvailabilityRule) int {
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek - b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return int(a.StartTime - b.StartTime)
		}
		return int(a.ID - b.ID)
	})
}
