package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleEvent(t model.EventType) model.BookingEvent {
	b := &model.Booking{
		ID:              12,
		CoachID:         3,
		ClientID:        4,
		ScheduledStart:  time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 90,
	}
	return model.NewBookingEvent(t, b, "", time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC))
}

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestAMQPPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: "coach.bookings", logger: zap.NewNop()}

	event := sampleEvent(model.EventBookingCancelled)
	require.NoError(t, p.Notify(context.Background(), event))

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, "coach.bookings", sent.exchange)
	assert.Equal(t, "booking.cancelled", sent.key)
	assert.Equal(t, event.EventID.String(), sent.msg.MessageId)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)

	var decoded model.BookingEvent
	require.NoError(t, json.Unmarshal(sent.msg.Body, &decoded))
	assert.Equal(t, event.BookingID, decoded.BookingID)
	assert.Equal(t, event.EventID, decoded.EventID)

	ch.err = errors.New("channel closed")
	assert.Error(t, p.Notify(context.Background(), event))
}

type fakeSender struct {
	params []*bot.SendMessageParams
}

func (s *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.params = append(s.params, params)
	return &models.Message{ID: len(s.params)}, nil
}

func TestTelegramNotifierSendsHTML(t *testing.T) {
	sender := &fakeSender{}
	n := &TelegramNotifier{sender: sender, chatID: -100500, logger: zap.NewNop()}

	event := sampleEvent(model.EventBookingCreated)
	require.NoError(t, n.Notify(context.Background(), event))

	require.Len(t, sender.params, 1)
	assert.Equal(t, int64(-100500), sender.params[0].ChatID)
	assert.Equal(t, models.ParseModeHTML, sender.params[0].ParseMode)
	assert.Contains(t, sender.params[0].Text, "New session booked")
	assert.Contains(t, sender.params[0].Text, "Mon 19.10.2026 09:00 UTC (1 h 30 min)")
}

func TestFormatEventEscapesReason(t *testing.T) {
	event := sampleEvent(model.EventBookingCancelled)
	event.Reason = "<flu>"

	text := FormatEvent(event)
	assert.Contains(t, text, "Reason: &lt;flu&gt;")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30 min", FormatDuration(30))
	assert.Equal(t, "1 h", FormatDuration(60))
	assert.Equal(t, "2 h 15 min", FormatDuration(135))
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), sampleEvent(model.EventBookingReminder)))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "booking.reminder", logs.All()[0].ContextMap()["type"])
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(context.Context, model.BookingEvent) error { return f.err }

func TestMultiCollectsErrors(t *testing.T) {
	sender := &fakeSender{}
	first := errors.New("broker down")
	second := errors.New("chat gone")

	m := Multi{
		failingNotifier{err: first},
		&TelegramNotifier{sender: sender, chatID: 1, logger: zap.NewNop()},
		failingNotifier{err: second},
	}

	err := m.Notify(context.Background(), sampleEvent(model.EventBookingCompleted))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	// The healthy sink still received the event.
	assert.Len(t, sender.params, 1)

	assert.NoError(t, Multi{}.Notify(context.Background(), sampleEvent(model.EventBookingCreated)))
}
