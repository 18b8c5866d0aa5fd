package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"go.uber.org/zap"
)

// AvailabilityService owns coach rule and exception mutations. Any change drops the
// coach's cached slot listings.
type AvailabilityService struct {
	store  AvailabilityStore
	cache  SlotCache
	logger *zap.Logger
}

func NewAvailabilityService(store AvailabilityStore, cache SlotCache, logger *zap.Logger) *AvailabilityService {
	if cache == nil {
		cache = NopSlotCache()
	}
	return &AvailabilityService{store: store, cache: cache, logger: logger}
}

// SetRule creates a new active weekly rule.
func (s *AvailabilityService) SetRule(ctx context.Context, coachID int64, dayOfWeek int, start, end interval.Clock) (*model.AvailabilityRule, error) {
	rule := &model.AvailabilityRule{
		CoachID:   coachID,
		DayOfWeek: dayOfWeek,
		StartTime: start,
		EndTime:   end,
		Active:    true,
	}

	if err := s.UpsertRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpsertRule validates and stores a rule. Updating keeps the owning coach.
func (s *AvailabilityService) UpsertRule(ctx context.Context, rule *model.AvailabilityRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("rule %s-%s on day %d: %w", rule.StartTime, rule.EndTime, rule.DayOfWeek, err)
	}

	if rule.ID != 0 {
		existing, err := s.store.GetRule(ctx, rule.ID)
		if err != nil {
			return fmt.Errorf("get rule: %w", err)
		}
		rule.CoachID = existing.CoachID
	}

	if err := s.store.UpsertRule(ctx, rule); err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	s.cache.Invalidate(ctx, rule.CoachID)

	s.logger.Info("Availability rule saved",
		zap.Int64("rule_id", rule.ID),
		zap.Int64("coach_id", rule.CoachID),
		zap.Int("day_of_week", rule.DayOfWeek),
		zap.String("start", rule.StartTime.String()),
		zap.String("end", rule.EndTime.String()),
		zap.Bool("active", rule.Active),
	)

	return nil
}

func (s *AvailabilityService) DeleteRule(ctx context.Context, ruleID int64) error {
	rule, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("get rule: %w", err)
	}

	if err := s.store.DeleteRule(ctx, ruleID); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	s.cache.Invalidate(ctx, rule.CoachID)

	s.logger.Info("Availability rule deleted",
		zap.Int64("rule_id", ruleID),
		zap.Int64("coach_id", rule.CoachID),
	)

	return nil
}

// ListRules returns every rule of the coach, or only one weekday's when day is set.
func (s *AvailabilityService) ListRules(ctx context.Context, coachID int64, day *time.Weekday) ([]*model.AvailabilityRule, error) {
	if day != nil {
		return s.store.RulesFor(ctx, coachID, *day)
	}
	return s.store.ListRules(ctx, coachID)
}

// SeedDefaults installs Monday-Friday 09:00-17:00. It refuses when Monday already has rules.
func (s *AvailabilityService) SeedDefaults(ctx context.Context, coachID int64) ([]*model.AvailabilityRule, error) {
	existing, err := s.store.RulesFor(ctx, coachID, time.Monday)
	if err != nil {
		return nil, fmt.Errorf("get monday rules: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("coach %d already has availability configured: %w", coachID, model.ErrInvalidInput)
	}

	rules := make([]*model.AvailabilityRule, 0, 5)
	for day := time.Monday; day <= time.Friday; day++ {
		rule, err := s.SetRule(ctx, coachID, int(day), interval.NewClock(9, 0), interval.NewClock(17, 0))
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// CreateException blocks [startDate, endDate] (inclusive, UTC calendar days).
func (s *AvailabilityService) CreateException(ctx context.Context, coachID int64, startDate, endDate time.Time, reason string) (*model.AvailabilityException, error) {
	exc := &model.AvailabilityException{
		CoachID:   coachID,
		StartDate: interval.Day(startDate),
		EndDate:   interval.Day(endDate),
		Reason:    reason,
	}
	if err := exc.Validate(); err != nil {
		return nil, fmt.Errorf("exception %s..%s: %w",
			exc.StartDate.Format(time.DateOnly), exc.EndDate.Format(time.DateOnly), err)
	}

	if err := s.store.CreateException(ctx, exc); err != nil {
		return nil, fmt.Errorf("create exception: %w", err)
	}
	s.cache.Invalidate(ctx, coachID)

	s.logger.Info("Availability exception created",
		zap.Int64("exception_id", exc.ID),
		zap.Int64("coach_id", coachID),
		zap.Time("start_date", exc.StartDate),
		zap.Time("end_date", exc.EndDate),
		zap.String("reason", reason),
	)

	return exc, nil
}

func (s *AvailabilityService) DeleteException(ctx context.Context, exceptionID int64) error {
	exc, err := s.store.GetException(ctx, exceptionID)
	if err != nil {
		return fmt.Errorf("get exception: %w", err)
	}

	if err := s.store.DeleteException(ctx, exceptionID); err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	s.cache.Invalidate(ctx, exc.CoachID)

	s.logger.Info("Availability exception deleted",
		zap.Int64("exception_id", exceptionID),
		zap.Int64("coach_id", exc.CoachID),
	)

	return nil
}

// ListExceptions returns exceptions intersecting the inclusive date range.
func (s *AvailabilityService) ListExceptions(ctx context.Context, coachID int64, from, to time.Time) ([]*model.AvailabilityException, error) {
	from, to = interval.Day(from), interval.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("range %s..%s: %w", from.Format(time.DateOnly), to.Format(time.DateOnly), model.ErrInvalidInterval)
	}
	return s.store.ExceptionsFor(ctx, coachID, from, to)
}
