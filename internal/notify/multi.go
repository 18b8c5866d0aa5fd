package notify

import (
	"context"

	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/Freeeeeet/coach_booking/internal/service"
	"go.uber.org/multierr"
)

// Multi fans an event out to every notifier. One failing sink does not stop the others;
// all failures are returned together.
type Multi []service.Notifier

func (m Multi) Notify(ctx context.Context, event model.BookingEvent) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.Notify(ctx, event))
	}
	return err
}
