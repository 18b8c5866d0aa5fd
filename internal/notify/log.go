package notify

import (
	"context"

	"github.com/Freeeeeet/coach_booking/internal/model"
	"go.uber.org/zap"
)

// LogNotifier writes every event to the structured log. It is the fallback when no broker
// or chat is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event model.BookingEvent) error {
	n.logger.Info("Booking event",
		zap.String("event_id", event.EventID.String()),
		zap.String("type", string(event.Type)),
		zap.Int64("booking_id", event.BookingID),
		zap.Int64("coach_id", event.CoachID),
		zap.Int64("client_id", event.ClientID),
		zap.Time("start", event.Start),
		zap.Int("duration", event.DurationMinutes),
		zap.String("reason", event.Reason),
	)
	return nil
}
