package service

import (
	"context"
	"fmt"
	"strings"

	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramService posts reservation changes to an administrators' chat.
type TelegramService struct {
	bot    domain.TelegramSender
	chatID int64
	queue  chan string
	logger *zerolog.Logger
}

func NewTelegramService(bot domain.TelegramSender, chatID int64, logger *zerolog.Logger) *TelegramService {
	l := logger.With().Str("component", "telegram").Logger()
	return &TelegramService{
		bot:    bot,
		chatID: chatID,
		queue:  make(chan string, models.WorkerQueueSize),
		logger: &l,
	}
}

func (s *TelegramService) SendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeMarkdown
	return s.bot.Send(msg)
}

// Subscribe attaches the notifier to reservation events on bus.
func (s *TelegramService) Subscribe(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventReservationCreated,
		events.EventReservationUpdated,
		events.EventReservationDeleted,
	} {
		bus.Subscribe(eventType, s.HandleEvent)
	}
}

// HandleEvent formats the event and queues it for delivery. It never blocks
// the publisher; when the queue is full the notice is dropped.
func (s *TelegramService) HandleEvent(event *events.Event) error {
	payload, err := event.Decode()
	if err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}

	select {
	case s.queue <- FormatReservationEvent(event.Type, payload):
	default:
		s.logger.Warn().Str("event_type", event.Type).Int64("reservation_id", payload.ReservationID).Msg("telegram queue full, notice dropped")
	}
	return nil
}

// Start delivers queued notices until ctx is done.
func (s *TelegramService) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-s.queue:
			if _, err := s.SendMarkdown(s.chatID, text); err != nil {
				s.logger.Error().Err(err).Int64("chat_id", s.chatID).Msg("telegram send failed")
			}
		}
	}
}

// FormatReservationEvent renders a Markdown notice for a reservation event.
func FormatReservationEvent(eventType string, p events.ReservationEventPayload) string {
	var title string
	switch eventType {
	case events.EventReservationCreated:
		title = "🆕 *Новое бронирование*"
	case events.EventReservationUpdated:
		title = "✏️ *Бронирование изменено*"
	case events.EventReservationDeleted:
		title = "❌ *Бронирование удалено*"
	default:
		title = "*" + eventType + "*"
	}

	room := p.RoomName
	if room == "" {
		room = fmt.Sprintf("#%d", p.RoomID)
	}

	var b strings.Builder
	b.WriteString(title)
	fmt.Fprintf(&b, "\n\nID: %d", p.ReservationID)
	fmt.Fprintf(&b, "\nАудитория: %s", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, room))
	fmt.Fprintf(&b, "\nДата: %s", p.Date)
	if p.Slot != "" {
		fmt.Fprintf(&b, "\nСлот: %s", p.Slot)
	}
	fmt.Fprintf(&b, "\nУчастников: %d", p.AttendeeCount)
	if p.Purpose != "" {
		fmt.Fprintf(&b, "\nЦель: %s", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, p.Purpose))
	}
	return b.String()
}
