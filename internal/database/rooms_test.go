package database

import (
	"context"
	"testing"

	"roombook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	room := &models.Room{Name: "Aula 1", Capacity: 25}
	require.NoError(t, db.CreateRoom(ctx, room))
	assert.NotZero(t, room.ID)
	assert.False(t, room.CreatedAt.IsZero())

	found, err := db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aula 1", found.Name)
	assert.Equal(t, 25, found.Capacity)
	assert.False(t, found.HasComputers)

	found.Capacity = 40
	found.HasComputers = true
	require.NoError(t, db.UpdateRoom(ctx, found))

	found, err = db.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, found.Capacity)
	assert.True(t, found.HasComputers)

	require.NoError(t, db.DeleteRoom(ctx, room.ID))
	_, err = db.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.DeleteRoom(ctx, room.ID), ErrNotFound)
	assert.ErrorIs(t, db.UpdateRoom(ctx, &models.Room{ID: 999, Name: "Nope", Capacity: 1}), ErrNotFound)
}

func TestListRooms_Filter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, r := range []*models.Room{
		{Name: "Small", Capacity: 10},
		{Name: "Lab", Capacity: 30, HasComputers: true},
		{Name: "Hall", Capacity: 120},
	} {
		require.NoError(t, db.CreateRoom(ctx, r))
	}

	all, err := db.ListRooms(ctx, models.RoomFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Hall", all[0].Name)

	big, err := db.ListRooms(ctx, models.RoomFilter{MinCapacity: 30})
	require.NoError(t, err)
	assert.Len(t, big, 2)

	withPCs := true
	labs, err := db.ListRooms(ctx, models.RoomFilter{HasComputers: &withPCs})
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, "Lab", labs[0].Name)
}

func TestDeleteRoom_CascadesReservations(t *testing.T) {
	db := setupTestDB(t)
	f := seedCatalog(t, db)
	ctx := context.Background()

	res := newReservation(f, "2030-01-07")
	require.NoError(t, db.CreateReservation(ctx, res))

	require.NoError(t, db.DeleteRoom(ctx, f.room.ID))

	_, err := db.GetReservation(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
