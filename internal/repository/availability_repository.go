package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/interval"
	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/Freeeeeet/coach_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const ruleColumns = `id, coach_id, day_of_week, start_minute, end_minute, is_active, created_at, updated_at`

const exceptionColumns = `id, coach_id, start_date, end_date, reason, created_at`

// AvailabilityRepository stores weekly rules in coach_availability and date-range
// blocks in availability_exceptions.
type AvailabilityRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewAvailabilityRepository(pool *pgxpool.Pool, logger *zap.Logger) *AvailabilityRepository {
	return &AvailabilityRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

func (r *AvailabilityRepository) RulesFor(ctx context.Context, coachID int64, day time.Weekday) ([]*model.AvailabilityRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM coach_availability
		WHERE coach_id = $1 AND day_of_week = $2
		ORDER BY start_minute, id
	`

	rows, err := r.Query(ctx, query, coachID, int(day))
	if err != nil {
		return nil, fmt.Errorf("get rules by weekday: %w", err)
	}
	return collectRules(rows)
}

func (r *AvailabilityRepository) ListRules(ctx context.Context, coachID int64) ([]*model.AvailabilityRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM coach_availability
		WHERE coach_id = $1
		ORDER BY day_of_week, start_minute, id
	`

	rows, err := r.Query(ctx, query, coachID)
	if err != nil {
		return nil, fmt.Errorf("get rules by coach: %w", err)
	}
	return collectRules(rows)
}

func (r *AvailabilityRepository) GetRule(ctx context.Context, id int64) (*model.AvailabilityRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM coach_availability WHERE id = $1`

	rule, err := scanRule(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, fmt.Errorf("rule %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule by id: %w", err)
	}
	return rule, nil
}

func (r *AvailabilityRepository) UpsertRule(ctx context.Context, rule *model.AvailabilityRule) error {
	if rule.ID == 0 {
		query := `
			INSERT INTO coach_availability (coach_id, day_of_week, start_minute, end_minute, is_active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`
		err := r.QueryRow(ctx, query,
			rule.CoachID,
			rule.DayOfWeek,
			int(rule.StartTime),
			int(rule.EndTime),
			rule.Active,
		).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
		if base.IsCheckViolation(err) {
			return fmt.Errorf("create rule: %w", model.ErrInvalidInterval)
		}
		if err != nil {
			return fmt.Errorf("create rule: %w", err)
		}
		return nil
	}

	query := `
		UPDATE coach_availability
		SET day_of_week = $2, start_minute = $3, end_minute = $4, is_active = $5
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.QueryRow(ctx, query,
		rule.ID,
		rule.DayOfWeek,
		int(rule.StartTime),
		int(rule.EndTime),
		rule.Active,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	switch {
	case base.IsNotFound(err):
		return fmt.Errorf("rule %d: %w", rule.ID, model.ErrNotFound)
	case base.IsCheckViolation(err):
		return fmt.Errorf("update rule: %w", model.ErrInvalidInterval)
	case err != nil:
		return fmt.Errorf("update rule: %w", err)
	}
	return nil
}

func (r *AvailabilityRepository) DeleteRule(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM coach_availability WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", id, model.ErrNotFound)
	}

	r.logger.Debug("Rule row deleted", zap.Int64("rule_id", id))
	return nil
}

func (r *AvailabilityRepository) ExceptionsFor(ctx context.Context, coachID int64, from, to time.Time) ([]*model.AvailabilityException, error) {
	query := `
		SELECT ` + exceptionColumns + `
		FROM availability_exceptions
		WHERE coach_id = $1 AND start_date <= $3::date AND end_date >= $2::date
		ORDER BY start_date, id
	`

	rows, err := r.Query(ctx, query, coachID, interval.Day(from), interval.Day(to))
	if err != nil {
		return nil, fmt.Errorf("get exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []*model.AvailabilityException
	for rows.Next() {
		exc, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		exceptions = append(exceptions, exc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exceptions: %w", err)
	}

	return exceptions, nil
}

func (r *AvailabilityRepository) GetException(ctx context.Context, id int64) (*model.AvailabilityException, error) {
	query := `SELECT ` + exceptionColumns + ` FROM availability_exceptions WHERE id = $1`

	exc, err := scanException(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, fmt.Errorf("exception %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get exception by id: %w", err)
	}
	return exc, nil
}

func (r *AvailabilityRepository) CreateException(ctx context.Context, exc *model.AvailabilityException) error {
	query := `
		INSERT INTO availability_exceptions (coach_id, start_date, end_date, reason)
		VALUES ($1, $2::date, $3::date, $4)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		exc.CoachID,
		interval.Day(exc.StartDate),
		interval.Day(exc.EndDate),
		exc.Reason,
	).Scan(&exc.ID, &exc.CreatedAt)
	if base.IsCheckViolation(err) {
		return fmt.Errorf("create exception: %w", model.ErrInvalidInterval)
	}
	if err != nil {
		return fmt.Errorf("create exception: %w", err)
	}

	return nil
}

func (r *AvailabilityRepository) DeleteException(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("exception %d: %w", id, model.ErrNotFound)
	}

	r.logger.Debug("Exception row deleted", zap.Int64("exception_id", id))
	return nil
}

func scanRule(row pgx.Row) (*model.AvailabilityRule, error) {
	var (
		rule       model.AvailabilityRule
		start, end int
	)
	err := row.Scan(
		&rule.ID,
		&rule.CoachID,
		&rule.DayOfWeek,
		&start,
		&end,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.StartTime = interval.Clock(start)
	rule.EndTime = interval.Clock(end)
	return &rule, nil
}

func collectRules(rows pgx.Rows) ([]*model.AvailabilityRule, error) {
	defer rows.Close()

	var rules []*model.AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	return rules, nil
}

func scanException(row pgx.Row) (*model.AvailabilityException, error) {
	var exc model.AvailabilityException
	err := row.Scan(
		&exc.ID,
		&exc.CoachID,
		&exc.StartDate,
		&exc.EndDate,
		&exc.Reason,
		&exc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	exc.StartDate = interval.Day(exc.StartDate)
	exc.EndDate = interval.Day(exc.EndDate)
	return &exc, nil
}
