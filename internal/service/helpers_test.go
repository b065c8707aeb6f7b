package service

import (
	"context"
	"testing"
	"time"

	"roombook/internal/database"
	"roombook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 2025-06-01 is a Sunday; the scenario date 2025-06-02 is the next Monday.
var referenceNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType string, reservationID int64, r *models.Reservation) error {
	return m.Called(ctx, taskType, reservationID, r).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type bookingEnv struct {
	svc   *BookingService
	db    *database.DB
	clock *FixedClock

	room  *models.Room
	slot  *models.TimeSlot
	slot2 *models.TimeSlot
	owner *models.User
	other *models.User
	admin *models.User
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedEnv(t *testing.T, db *database.DB) *bookingEnv {
	t.Helper()
	ctx := context.Background()
	env := &bookingEnv{db: db}

	env.room = &models.Room{Name: "R", Capacity: 30}
	require.NoError(t, db.CreateRoom(ctx, env.room))

	env.slot = &models.TimeSlot{DayOfWeek: models.Monday, StartTime: models.MustTimeOfDay("09:00"), EndTime: models.MustTimeOfDay("10:00")}
	require.NoError(t, db.CreateTimeSlot(ctx, env.slot))
	env.slot2 = &models.TimeSlot{DayOfWeek: models.Monday, StartTime: models.MustTimeOfDay("10:00"), EndTime: models.MustTimeOfDay("11:00")}
	require.NoError(t, db.CreateTimeSlot(ctx, env.slot2))

	env.owner = &models.User{Email: "owner@school.test", Name: "Owner", Role: models.RoleProfessor}
	require.NoError(t, db.CreateUser(ctx, env.owner))
	env.other = &models.User{Email: "other@school.test", Name: "Other", Role: models.RoleProfessor}
	require.NoError(t, db.CreateUser(ctx, env.other))
	env.admin = &models.User{Email: "admin@school.test", Name: "Admin", Role: models.RoleAdmin}
	require.NoError(t, db.CreateUser(ctx, env.admin))

	return env
}

func setupBooking(t *testing.T) *bookingEnv {
	t.Helper()
	env := seedEnv(t, newTestDB(t))
	env.clock = NewFixedClock(referenceNow)
	logger := zerolog.Nop()
	env.svc = NewBookingService(env.db, nil, nil, env.clock, time.UTC, &logger)
	return env
}

func (e *bookingEnv) request(slot *models.TimeSlot, date string, attendees int) models.ReservationRequest {
	d, _ := models.ParseDate(date)
	return models.ReservationRequest{
		RoomID:        e.room.ID,
		SlotID:        slot.ID,
		Date:          d,
		Purpose:       "Lecture",
		AttendeeCount: attendees,
	}
}

func requesterOf(u *models.User) models.Requester {
	return models.Requester{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin()}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}
