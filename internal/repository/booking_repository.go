package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/Freeeeeet/coach_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const bookingColumns = `id, coach_id, client_id, scheduled_start, duration_minutes, status, payment_status,
	notes, cancelled_by, cancellation_reason, cancelled_at, created_at, updated_at`

// BookingRepository is the Postgres booking ledger. Writes that can create overlap take a
// transaction-scoped advisory lock on the coach id; the bookings_no_overlap exclusion
// constraint backs the same invariant.
type BookingRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewBookingRepository(pool *pgxpool.Pool, logger *zap.Logger) *BookingRepository {
	return &BookingRepository{
		Repository: base.NewRepository(pool),
		logger:     logger,
	}
}

// Reserve inserts a scheduled booking if the coach is free over the requested interval.
func (r *BookingRepository) Reserve(ctx context.Context, req model.ReserveRequest) (*model.Booking, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("duration %d: %w", req.DurationMinutes, model.ErrInvalidInterval)
	}

	start := req.Start.UTC()
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	var booking *model.Booking
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockCoach(ctx, tx, req.CoachID); err != nil {
			return err
		}

		taken, err := hasOverlap(ctx, tx, req.CoachID, start, end, 0)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrSlotTaken
		}

		query := `
			INSERT INTO bookings (coach_id, client_id, scheduled_start, scheduled_end, duration_minutes,
				status, payment_status, notes)
			VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, $7)
			RETURNING ` + bookingColumns

		booking, err = scanBooking(tx.QueryRow(ctx, query,
			req.CoachID,
			req.ClientID,
			start,
			end,
			req.DurationMinutes,
			req.PaymentStatus,
			req.Notes,
		))
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, r.mapLedgerError(err)
	}

	return booking, nil
}

// Reschedule moves a scheduled booking in place, keeping its id.
func (r *BookingRepository) Reschedule(ctx context.Context, bookingID int64, newStart time.Time, newDuration int) (*model.Booking, error) {
	if newDuration <= 0 {
		return nil, fmt.Errorf("duration %d: %w", newDuration, model.ErrInvalidInterval)
	}

	current, err := r.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	start := newStart.UTC()
	end := start.Add(time.Duration(newDuration) * time.Minute)

	var booking *model.Booking
	err = r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockCoach(ctx, tx, current.CoachID); err != nil {
			return err
		}

		locked, err := getForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if locked.Status.IsTerminal() {
			return fmt.Errorf("booking %d is %s: %w", bookingID, locked.Status, model.ErrAlreadyTerminal)
		}

		taken, err := hasOverlap(ctx, tx, locked.CoachID, start, end, bookingID)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrSlotTaken
		}

		query := `
			UPDATE bookings
			SET scheduled_start = $2, scheduled_end = $3, duration_minutes = $4
			WHERE id = $1
			RETURNING ` + bookingColumns

		booking, err = scanBooking(tx.QueryRow(ctx, query, bookingID, start, end, newDuration))
		if err != nil {
			return fmt.Errorf("update booking time: %w", err)
		}

		// A moved session gets its reminders again.
		if _, err := tx.Exec(ctx, `DELETE FROM booking_reminders WHERE booking_id = $1`, bookingID); err != nil {
			return fmt.Errorf("reset reminders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, r.mapLedgerError(err)
	}

	return booking, nil
}

// Cancel moves scheduled -> cancelled and appends the audit note.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID int64, by model.Party, reason string) (*model.Booking, bool, error) {
	var (
		booking *model.Booking
		changed bool
	)
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		locked, err := getForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		switch locked.Status {
		case model.BookingStatusCancelled:
			booking = locked
			return nil
		case model.BookingStatusScheduled:
		default:
			return fmt.Errorf("booking %d is %s: %w", bookingID, locked.Status, model.ErrAlreadyTerminal)
		}

		var reasonArg *string
		if reason != "" {
			reasonArg = &reason
		}

		query := `
			UPDATE bookings
			SET status = 'cancelled', cancelled_by = $2, cancellation_reason = $3, cancelled_at = NOW(),
				notes = $4
			WHERE id = $1
			RETURNING ` + bookingColumns

		booking, err = scanBooking(tx.QueryRow(ctx, query,
			bookingID,
			string(by),
			reasonArg,
			model.AppendNote(locked.Notes, model.CancellationNote(by, reason)),
		))
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return booking, changed, nil
}

// Finalize moves scheduled -> completed or no_show.
func (r *BookingRepository) Finalize(ctx context.Context, bookingID int64, status model.BookingStatus) (*model.Booking, bool, error) {
	if status != model.BookingStatusCompleted && status != model.BookingStatusNoShow {
		return nil, false, fmt.Errorf("finalize to %q: %w", status, model.ErrInvalidInput)
	}

	var (
		booking *model.Booking
		changed bool
	)
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		locked, err := getForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		switch locked.Status {
		case status:
			booking = locked
			return nil
		case model.BookingStatusScheduled:
		default:
			return fmt.Errorf("booking %d is %s: %w", bookingID, locked.Status, model.ErrAlreadyTerminal)
		}

		query := `UPDATE bookings SET status = $2 WHERE id = $1 RETURNING ` + bookingColumns
		booking, err = scanBooking(tx.QueryRow(ctx, query, bookingID, status))
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return booking, changed, nil
}

func (r *BookingRepository) AppendNote(ctx context.Context, bookingID int64, note string) (*model.Booking, error) {
	query := `
		UPDATE bookings
		SET notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END
		WHERE id = $1
		RETURNING ` + bookingColumns

	booking, err := scanBooking(r.QueryRow(ctx, query, bookingID, note))
	if base.IsNotFound(err) {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("append booking note: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) Get(ctx context.Context, bookingID int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, bookingID))
	if base.IsNotFound(err) {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) ListByCoach(ctx context.Context, coachID int64, from, to time.Time, statuses []model.BookingStatus) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE coach_id = $1
			AND scheduled_start < $3 AND scheduled_end > $2
			AND (cardinality($4::text[]) = 0 OR status = ANY($4::text[]))
		ORDER BY scheduled_start, id
	`

	rows, err := r.Query(ctx, query, coachID, from.UTC(), to.UTC(), statusArgs(statuses))
	if err != nil {
		return nil, fmt.Errorf("get bookings by coach: %w", err)
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListByClient(ctx context.Context, clientID int64, statuses []model.BookingStatus) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE client_id = $1
			AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY scheduled_start, id
	`

	rows, err := r.Query(ctx, query, clientID, statusArgs(statuses))
	if err != nil {
		return nil, fmt.Errorf("get bookings by client: %w", err)
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'scheduled' AND scheduled_start >= $1 AND scheduled_start < $2
		ORDER BY scheduled_start, id
	`

	rows, err := r.Query(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("get upcoming bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *BookingRepository) MarkReminderSent(ctx context.Context, bookingID int64, kind string) (bool, error) {
	query := `
		INSERT INTO booking_reminders (booking_id, kind)
		VALUES ($1, $2)
		ON CONFLICT (booking_id, kind) DO NOTHING
	`

	affected, err := r.ExecAffected(ctx, query, bookingID, kind)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return affected == 1, nil
}

func lockCoach(ctx context.Context, tx pgx.Tx, coachID int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, coachID); err != nil {
		return fmt.Errorf("lock coach %d: %w", coachID, err)
	}
	return nil
}

// hasOverlap checks [start, end) against the coach's scheduled bookings other than skipID.
func hasOverlap(ctx context.Context, tx pgx.Tx, coachID int64, start, end time.Time, skipID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE coach_id = $1 AND status = 'scheduled' AND id <> $4
				AND scheduled_start < $3 AND scheduled_end > $2
		)
	`

	var exists bool
	if err := tx.QueryRow(ctx, query, coachID, start, end, skipID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return exists, nil
}

func getForUpdate(ctx context.Context, tx pgx.Tx, bookingID int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(tx.QueryRow(ctx, query, bookingID))
	if base.IsNotFound(err) {
		return nil, fmt.Errorf("booking %d: %w", bookingID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock booking: %w", err)
	}
	return booking, nil
}

// mapLedgerError turns an exclusion-constraint violation into ErrSlotTaken. The advisory
// lock should make it unreachable, so it is logged when it happens.
func (r *BookingRepository) mapLedgerError(err error) error {
	if base.IsExclusionViolation(err) {
		r.logger.Warn("Booking overlap rejected by exclusion constraint", zap.Error(err))
		return model.ErrSlotTaken
	}
	return err
}

func statusArgs(statuses []model.BookingStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b           model.Booking
		cancelledBy *string
	)
	err := row.Scan(
		&b.ID,
		&b.CoachID,
		&b.ClientID,
		&b.ScheduledStart,
		&b.DurationMinutes,
		&b.Status,
		&b.PaymentStatus,
		&b.Notes,
		&cancelledBy,
		&b.CancellationReason,
		&b.CancelledAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ScheduledStart = b.ScheduledStart.UTC()
	if cancelledBy != nil {
		party := model.Party(*cancelledBy)
		b.CancelledBy = &party
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}
