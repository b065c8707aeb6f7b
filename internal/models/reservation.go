package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	PurposeMinLength = 3
	PurposeMaxLength = 200
)

// Reservation books one room for one time slot on one calendar date.
// OwnerID and CreatedAt never change after creation.
type Reservation struct {
	ID            int64     `json:"id"`
	RoomID        int64     `json:"room_id"`
	SlotID        int64     `json:"slot_id"`
	OwnerID       int64     `json:"owner_id"`
	Date          time.Time `json:"date"`
	Purpose       string    `json:"purpose"`
	AttendeeCount int       `json:"attendee_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Slot is the resolved time slot; stores populate it on read.
	Slot *TimeSlot `json:"slot,omitempty"`
}

// MarshalJSON renders Date as YYYY-MM-DD.
func (r Reservation) MarshalJSON() ([]byte, error) {
	type alias Reservation
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(r), Date: r.Date.Format(DateLayout)})
}

func (r *Reservation) UnmarshalJSON(data []byte) error {
	type alias Reservation
	aux := struct {
		*alias
		Date string `json:"date"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		r.Date = time.Time{}
		return nil
	}
	date, err := ParseDate(aux.Date)
	if err != nil {
		return err
	}
	r.Date = date
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return d, nil
}

// CalendarDate drops the clock part of t, keeping t's own year/month/day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ReservationRequest is the input for creating a reservation.
type ReservationRequest struct {
	RoomID        int64     `json:"room_id"`
	SlotID        int64     `json:"slot_id"`
	Date          time.Time `json:"date"`
	Purpose       string    `json:"purpose"`
	AttendeeCount int       `json:"attendee_count"`
}

// Validate checks field-level constraints only; business rules live in the
// booking service.
func (r ReservationRequest) Validate() error {
	return validateFields(r.RoomID, r.SlotID, r.Date, r.Purpose, r.AttendeeCount)
}

// ReservationPatch carries a partial update; nil fields keep their value.
type ReservationPatch struct {
	RoomID        *int64     `json:"room_id,omitempty"`
	SlotID        *int64     `json:"slot_id,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	Purpose       *string    `json:"purpose,omitempty"`
	AttendeeCount *int       `json:"attendee_count,omitempty"`
}

// Merge applies the present fields of p to a copy of r. ID, OwnerID and
// CreatedAt are carried over untouched.
func (p ReservationPatch) Merge(r Reservation) Reservation {
	if p.RoomID != nil {
		r.RoomID = *p.RoomID
	}
	if p.SlotID != nil && *p.SlotID != r.SlotID {
		r.SlotID = *p.SlotID
		r.Slot = nil
	}
	if p.Date != nil {
		r.Date = CalendarDate(*p.Date)
	}
	if p.Purpose != nil {
		r.Purpose = strings.TrimSpace(*p.Purpose)
	}
	if p.AttendeeCount != nil {
		r.AttendeeCount = *p.AttendeeCount
	}
	return r
}

// IsEmpty reports whether the patch changes nothing.
func (p ReservationPatch) IsEmpty() bool {
	return p.RoomID == nil && p.SlotID == nil && p.Date == nil && p.Purpose == nil && p.AttendeeCount == nil
}

// Validate re-checks field constraints on a merged reservation.
func (r Reservation) Validate() error {
	return validateFields(r.RoomID, r.SlotID, r.Date, r.Purpose, r.AttendeeCount)
}

func validateFields(roomID, slotID int64, date time.Time, purpose string, attendees int) error {
	if roomID <= 0 {
		return fmt.Errorf("room_id must be positive")
	}
	if slotID <= 0 {
		return fmt.Errorf("slot_id must be positive")
	}
	if date.IsZero() {
		return fmt.Errorf("date is required")
	}
	n := len([]rune(strings.TrimSpace(purpose)))
	if n < PurposeMinLength || n > PurposeMaxLength {
		return fmt.Errorf("purpose must be between %d and %d characters", PurposeMinLength, PurposeMaxLength)
	}
	if attendees < 1 {
		return fmt.Errorf("attendee_count must be positive")
	}
	return nil
}
