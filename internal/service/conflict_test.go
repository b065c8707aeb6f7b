package service

import (
	"testing"

	"roombook/internal/models"

	"github.com/stretchr/testify/assert"
)

func slotAt(day models.DayOfWeek, start, end string) *models.TimeSlot {
	return &models.TimeSlot{DayOfWeek: day, StartTime: models.MustTimeOfDay(start), EndTime: models.MustTimeOfDay(end)}
}

func TestHasConflict(t *testing.T) {
	monday := mustDate(t, "2025-06-02")
	nextMonday := mustDate(t, "2025-06-09")

	a := &models.Reservation{ID: 1, Date: monday, Slot: slotAt(models.Monday, "09:00", "10:00")}
	existing := []*models.Reservation{a}

	tests := []struct {
		name      string
		candidate models.Reservation
		excludeID int64
		want      bool
	}{
		{"same slot same date", models.Reservation{Date: monday, Slot: slotAt(models.Monday, "09:00", "10:00")}, 0, true},
		{"partial overlap", models.Reservation{Date: monday, Slot: slotAt(models.Monday, "09:30", "11:00")}, 0, true},
		{"one minute overlap", models.Reservation{Date: monday, Slot: slotAt(models.Monday, "08:00", "09:01")}, 0, true},
		{"touching end", models.Reservation{Date: monday, Slot: slotAt(models.Monday, "10:00", "11:00")}, 0, false},
		{"touching start", models.Reservation{Date: monday, Slot: slotAt(models.Monday, "08:00", "09:00")}, 0, false},
		{"other date", models.Reservation{Date: nextMonday, Slot: slotAt(models.Monday, "09:00", "10:00")}, 0, false},
		{"self excluded", *a, a.ID, false},
		{"other id excluded", *a, 99, true},
		{"unresolved slot", models.Reservation{Date: monday}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasConflict(tt.candidate, existing, tt.excludeID))
		})
	}
}

func TestHasConflict_SkipsUnresolvedExisting(t *testing.T) {
	monday := mustDate(t, "2025-06-02")
	existing := []*models.Reservation{nil, {ID: 2, Date: monday}}

	candidate := models.Reservation{Date: monday, Slot: slotAt(models.Monday, "09:00", "10:00")}
	assert.False(t, HasConflict(candidate, existing, 0))
}

func TestHasConflict_AnyMatch(t *testing.T) {
	monday := mustDate(t, "2025-06-02")
	existing := []*models.Reservation{
		{ID: 1, Date: monday, Slot: slotAt(models.Monday, "08:00", "09:00")},
		{ID: 2, Date: monday, Slot: slotAt(models.Monday, "12:00", "13:00")},
		{ID: 3, Date: monday, Slot: slotAt(models.Monday, "14:00", "15:00")},
	}

	assert.True(t, HasConflict(models.Reservation{Date: monday, Slot: slotAt(models.Monday, "14:30", "16:00")}, existing, 0))
	assert.False(t, HasConflict(models.Reservation{Date: monday, Slot: slotAt(models.Monday, "09:00", "12:00")}, existing, 0))
	assert.False(t, HasConflict(models.Reservation{ID: 3, Date: monday, Slot: slotAt(models.Monday, "14:30", "16:00")}, existing, 3))
}
