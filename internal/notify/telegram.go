package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/coach_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier posts a short HTML message per booking event to one operations chat.
type TelegramNotifier struct {
	sender messageSender
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{sender: b, chatID: chatID, logger: logger}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, event model.BookingEvent) error {
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      FormatEvent(event),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

var eventTitles = map[model.EventType]string{
	model.EventBookingCreated:     "📅 New session booked",
	model.EventBookingRescheduled: "🔁 Session rescheduled",
	model.EventBookingCancelled:   "❌ Session cancelled",
	model.EventBookingCompleted:   "✅ Session completed",
	model.EventBookingNoShow:      "🚫 Client did not show up",
	model.EventBookingReminder:    "⏰ Upcoming session",
}

// FormatEvent renders an event as Telegram HTML.
func FormatEvent(event model.BookingEvent) string {
	title, ok := eventTitles[event.Type]
	if !ok {
		title = string(event.Type)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n\n", title)
	fmt.Fprintf(&sb, "Booking: #%d\n", event.BookingID)
	fmt.Fprintf(&sb, "Coach: %d, client: %d\n", event.CoachID, event.ClientID)
	fmt.Fprintf(&sb, "When: %s UTC (%s)\n", event.Start.UTC().Format("Mon 02.01.2006 15:04"), FormatDuration(event.DurationMinutes))
	if event.Reason != "" {
		fmt.Fprintf(&sb, "Reason: %s\n", html.EscapeString(event.Reason))
	}
	return sb.String()
}

// FormatDuration renders minutes as "45 min", "1 h" or "1 h 30 min".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}
