package service

import (
	"context"
	"testing"

	"roombook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalog(t *testing.T) (*CatalogService, *bookingEnv) {
	t.Helper()
	env := setupBooking(t)
	logger := zerolog.Nop()
	return NewCatalogService(env.db, &logger), env
}

func TestCatalogService_Rooms(t *testing.T) {
	svc, _ := setupCatalog(t)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, models.Room{Name: "  Lab 101 ", Capacity: 24, HasComputers: true})
	require.NoError(t, err)
	assert.NotZero(t, room.ID)
	assert.Equal(t, "Lab 101", room.Name)

	got, err := svc.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, got.Capacity)
	assert.True(t, got.HasComputers)

	withComputers := true
	rooms, err := svc.ListRooms(ctx, models.RoomFilter{HasComputers: &withComputers})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)

	capacity := 40
	updated, err := svc.UpdateRoom(ctx, room.ID, models.RoomPatch{Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.Capacity)
	assert.Equal(t, "Lab 101", updated.Name)

	require.NoError(t, svc.DeleteRoom(ctx, room.ID))
	_, err = svc.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_InvalidRoom(t *testing.T) {
	svc, env := setupCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name string
		room models.Room
	}{
		{"short name", models.Room{Name: "A", Capacity: 10}},
		{"long name", models.Room{Name: string(make([]rune, 51)), Capacity: 10}},
		{"zero capacity", models.Room{Name: "Hall", Capacity: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRoom(ctx, tt.room)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	zero := 0
	_, err := svc.UpdateRoom(ctx, env.room.ID, models.RoomPatch{Capacity: &zero})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateRoom(ctx, 999, models.RoomPatch{Capacity: &zero})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_DeleteRoomCascades(t *testing.T) {
	svc, env := setupCatalog(t)
	ctx := context.Background()

	res, err := env.svc.Create(ctx, env.request(env.slot, "2025-06-02", 10), requesterOf(env.owner))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRoom(ctx, env.room.ID))

	_, err = env.svc.Get(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteRoom(ctx, env.room.ID), ErrNotFound)
}

func TestCatalogService_TimeSlots(t *testing.T) {
	svc, env := setupCatalog(t)
	ctx := context.Background()

	slot, err := svc.CreateTimeSlot(ctx, models.TimeSlot{
		DayOfWeek: models.Tuesday,
		StartTime: models.MustTimeOfDay("14:00"),
		EndTime:   models.MustTimeOfDay("15:30"),
	})
	require.NoError(t, err)
	assert.NotZero(t, slot.ID)

	slots, err := svc.ListTimeSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, env.slot.ID, slots[0].ID)
	assert.Equal(t, slot.ID, slots[2].ID)

	_, err = svc.CreateTimeSlot(ctx, *env.slot)
	assert.ErrorIs(t, err, ErrInvalidInput, "duplicate slot")

	_, err = svc.CreateTimeSlot(ctx, models.TimeSlot{
		DayOfWeek: models.Tuesday,
		StartTime: models.MustTimeOfDay("15:00"),
		EndTime:   models.MustTimeOfDay("14:00"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput, "end before start")

	require.NoError(t, svc.DeleteTimeSlot(ctx, slot.ID))
	_, err = svc.GetTimeSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteTimeSlot(ctx, slot.ID), ErrNotFound)
}

func TestCatalogService_DeleteTimeSlotInUse(t *testing.T) {
	svc, env := setupCatalog(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.request(env.slot, "2025-06-02", 10), requesterOf(env.owner))
	require.NoError(t, err)

	err = svc.DeleteTimeSlot(ctx, env.slot.ID)
	assert.ErrorIs(t, err, ErrInUse)

	_, err = svc.GetTimeSlot(ctx, env.slot.ID)
	assert.NoError(t, err)
}
