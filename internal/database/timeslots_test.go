package database

import (
	"context"
	"testing"

	"roombook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlotCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	slots := []*models.TimeSlot{
		{DayOfWeek: models.Wednesday, StartTime: models.MustTimeOfDay("08:00"), EndTime: models.MustTimeOfDay("09:00")},
		{DayOfWeek: models.Monday, StartTime: models.MustTimeOfDay("10:00"), EndTime: models.MustTimeOfDay("11:00")},
		{DayOfWeek: models.Monday, StartTime: models.MustTimeOfDay("09:00"), EndTime: models.MustTimeOfDay("10:00")},
	}
	for _, s := range slots {
		require.NoError(t, db.CreateTimeSlot(ctx, s))
	}

	found, err := db.GetTimeSlot(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, *slots[0], *found)

	list, err := db.ListTimeSlots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "MONDAY 09:00-10:00", list[0].String())
	assert.Equal(t, "MONDAY 10:00-11:00", list[1].String())
	assert.Equal(t, models.Wednesday, list[2].DayOfWeek)

	require.NoError(t, db.DeleteTimeSlot(ctx, slots[0].ID))
	_, err = db.GetTimeSlot(ctx, slots[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTimeSlot_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	slot := models.TimeSlot{DayOfWeek: models.Friday, StartTime: models.MustTimeOfDay("12:00"), EndTime: models.MustTimeOfDay("13:00")}
	first := slot
	require.NoError(t, db.CreateTimeSlot(ctx, &first))

	second := slot
	assert.ErrorIs(t, db.CreateTimeSlot(ctx, &second), ErrDuplicate)
}

func TestDeleteTimeSlot_InUse(t *testing.T) {
	db := setupTestDB(t)
	f := seedCatalog(t, db)
	ctx := context.Background()

	require.NoError(t, db.CreateReservation(ctx, newReservation(f, "2030-01-07")))

	err := db.DeleteTimeSlot(ctx, f.slot.ID)
	assert.ErrorIs(t, err, ErrReferenced)

	_, err = db.GetTimeSlot(ctx, f.slot.ID)
	assert.NoError(t, err)
}
