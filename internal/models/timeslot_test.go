package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(day DayOfWeek, start, end string) TimeSlot {
	return TimeSlot{DayOfWeek: day, StartTime: MustTimeOfDay(start), EndTime: MustTimeOfDay(end)}
}

func TestTimeSlot_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeSlot
		want bool
	}{
		{"identical", slot(Monday, "09:00", "10:00"), slot(Monday, "09:00", "10:00"), true},
		{"adjacent", slot(Monday, "09:00", "10:00"), slot(Monday, "10:00", "11:00"), false},
		{"one minute", slot(Monday, "09:00", "10:01"), slot(Monday, "10:00", "11:00"), true},
		{"contained", slot(Monday, "08:00", "12:00"), slot(Monday, "09:00", "10:00"), true},
		{"disjoint", slot(Monday, "08:00", "09:00"), slot(Monday, "13:00", "14:00"), false},
		{"different day", slot(Monday, "09:00", "10:00"), slot(Tuesday, "09:00", "10:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a), "overlap must be symmetric")
			assert.True(t, tt.a.Overlaps(tt.a), "overlap must be reflexive")
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(570), got)
	assert.Equal(t, "09:30", got.String())

	got, err = ParseTimeOfDay(" 14:05:59 ")
	require.NoError(t, err)
	assert.Equal(t, "14:05", got.String())

	got, err = ParseTimeOfDay("24:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(24*60), got)
	assert.Equal(t, "24:00", got.String())

	for _, bad := range []string{"", "9", "25:00", "24:01", "12:60", "noon"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDay_Text(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.UnmarshalText([]byte("07:15")))
	b, err := tod.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "07:15", string(b))

	assert.Error(t, tod.UnmarshalText([]byte("7 am")))
}

func TestParseDayOfWeek(t *testing.T) {
	d, err := ParseDayOfWeek(" friday ")
	require.NoError(t, err)
	assert.Equal(t, Friday, d)

	_, err = ParseDayOfWeek("FUNDAY")
	assert.Error(t, err)
}

func TestTimeSlot_Validate(t *testing.T) {
	assert.NoError(t, slot(Monday, "09:00", "10:00").Validate())
	assert.Error(t, slot(Monday, "10:00", "10:00").Validate())
	assert.Error(t, slot(Monday, "11:00", "10:00").Validate())
	assert.Error(t, TimeSlot{DayOfWeek: "MON", StartTime: 0, EndTime: 60}.Validate())

	// A slot may end at midnight but not start there.
	assert.NoError(t, slot(Sunday, "23:00", "24:00").Validate())
	assert.Error(t, slot(Sunday, "24:00", "24:00").Validate())
	assert.False(t, slot(Sunday, "23:00", "24:00").Overlaps(slot(Sunday, "00:00", "01:00")))
	assert.Equal(t, "MONDAY 09:00-10:00", slot(Monday, "09:00", "10:00").String())
}
