package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"roombook/internal/events"
	"roombook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func reservationEvent(t *testing.T, eventType string, p events.ReservationEventPayload) *events.Event {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return &events.Event{Type: eventType, Payload: data}
}

func TestFormatReservationEvent(t *testing.T) {
	p := events.ReservationEventPayload{
		ReservationID: 7,
		RoomID:        3,
		RoomName:      "Lab_1",
		Slot:          "MONDAY 09:00-10:00",
		Date:          "2025-06-02",
		Purpose:       "Exam *prep*",
		AttendeeCount: 12,
	}

	text := FormatReservationEvent(events.EventReservationCreated, p)
	assert.Contains(t, text, "Новое бронирование")
	assert.Contains(t, text, "ID: 7")
	assert.Contains(t, text, `Lab\_1`)
	assert.Contains(t, text, "2025-06-02")
	assert.Contains(t, text, "MONDAY 09:00-10:00")
	assert.Contains(t, text, `Exam \*prep\*`)
	assert.Contains(t, text, "Участников: 12")

	assert.Contains(t, FormatReservationEvent(events.EventReservationDeleted, p), "удалено")
	assert.Contains(t, FormatReservationEvent(events.EventReservationUpdated, p), "изменено")

	p.RoomName = ""
	assert.Contains(t, FormatReservationEvent("custom", p), "#3")
}

func TestTelegramService_DeliversQueuedNotices(t *testing.T) {
	sender := new(mockSender)
	logger := zerolog.Nop()
	svc := NewTelegramService(sender, 42, &logger)

	sent := make(chan tgbotapi.MessageConfig, 1)
	sender.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).
		Run(func(args mock.Arguments) { sent <- args.Get(0).(tgbotapi.MessageConfig) }).
		Return(tgbotapi.Message{}, nil)

	bus := events.NewEventBus()
	svc.Subscribe(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)

	require.NoError(t, bus.PublishJSON(events.EventReservationCreated, events.ReservationEventPayload{
		ReservationID: 1,
		RoomName:      "Hall",
		Date:          "2025-06-02",
		AttendeeCount: 5,
	}))

	select {
	case msg := <-sent:
		assert.Equal(t, int64(42), msg.ChatID)
		assert.Equal(t, models.ParseModeMarkdown, msg.ParseMode)
		assert.Contains(t, msg.Text, "Hall")
	case <-time.After(2 * time.Second):
		t.Fatal("notice was not delivered")
	}
}

func TestTelegramService_SendFailureKeepsLoopRunning(t *testing.T) {
	sender := new(mockSender)
	logger := zerolog.Nop()
	svc := NewTelegramService(sender, 42, &logger)

	calls := make(chan struct{}, 2)
	sender.On("Send", mock.Anything).
		Run(func(mock.Arguments) { calls <- struct{}{} }).
		Return(tgbotapi.Message{}, errors.New("telegram down"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Start(ctx)

	p := events.ReservationEventPayload{ReservationID: 1, Date: "2025-06-02"}
	require.NoError(t, svc.HandleEvent(reservationEvent(t, events.EventReservationCreated, p)))
	require.NoError(t, svc.HandleEvent(reservationEvent(t, events.EventReservationDeleted, p)))

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("send %d not attempted", i+1)
		}
	}
}

func TestTelegramService_HandleEventDropsWhenFull(t *testing.T) {
	sender := new(mockSender)
	logger := zerolog.Nop()
	svc := NewTelegramService(sender, 42, &logger)

	ev := reservationEvent(t, events.EventReservationUpdated, events.ReservationEventPayload{ReservationID: 9})
	for i := 0; i < models.WorkerQueueSize+5; i++ {
		require.NoError(t, svc.HandleEvent(ev))
	}
	assert.Len(t, svc.queue, models.WorkerQueueSize)
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestTelegramService_HandleEventBadPayload(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewTelegramService(new(mockSender), 42, &logger)

	err := svc.HandleEvent(&events.Event{Type: events.EventReservationCreated, Payload: []byte("{")})
	assert.Error(t, err)
}
