package api

import (
	"encoding/json"
	"fmt"
	"time"

	"roombook/internal/models"
	"roombook/internal/service"

	"google.golang.org/protobuf/types/known/structpb"
)

// reservationBody is the wire form of a reservation request. Dates travel
// as YYYY-MM-DD strings.
type reservationBody struct {
	RoomID        int64  `json:"room_id"`
	SlotID        int64  `json:"slot_id"`
	Date          string `json:"date"`
	Purpose       string `json:"purpose"`
	AttendeeCount int    `json:"attendee_count"`
	// ExcludeID is only read by the dry-run validation endpoint.
	ExcludeID int64 `json:"exclude_id,omitempty"`
}

func (b reservationBody) toRequest() (models.ReservationRequest, error) {
	date, err := parseDateField(b.Date)
	if err != nil {
		return models.ReservationRequest{}, err
	}
	return models.ReservationRequest{
		RoomID:        b.RoomID,
		SlotID:        b.SlotID,
		Date:          date,
		Purpose:       b.Purpose,
		AttendeeCount: b.AttendeeCount,
	}, nil
}

type reservationPatchBody struct {
	RoomID        *int64  `json:"room_id,omitempty"`
	SlotID        *int64  `json:"slot_id,omitempty"`
	Date          *string `json:"date,omitempty"`
	Purpose       *string `json:"purpose,omitempty"`
	AttendeeCount *int    `json:"attendee_count,omitempty"`
}

func (b reservationPatchBody) toPatch() (models.ReservationPatch, error) {
	patch := models.ReservationPatch{
		RoomID:        b.RoomID,
		SlotID:        b.SlotID,
		Purpose:       b.Purpose,
		AttendeeCount: b.AttendeeCount,
	}
	if b.Date != nil {
		date, err := parseDateField(*b.Date)
		if err != nil {
			return models.ReservationPatch{}, err
		}
		patch.Date = &date
	}
	return patch, nil
}

type userBody struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

func parseDateField(s string) (time.Time, error) {
	date, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, invalidInput("%v", err)
	}
	return date, nil
}

func invalidInput(format string, args ...interface{}) error {
	return &service.ValidationError{Kind: service.ErrInvalidInput, Reason: fmt.Sprintf(format, args...)}
}

// decodeStruct converts a protobuf Struct into one of the wire bodies above.
func decodeStruct(in *structpb.Struct, out interface{}) error {
	if in == nil {
		return invalidInput("request body is required")
	}
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return invalidInput("invalid request body: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalidInput("invalid request body: %v", err)
	}
	return nil
}

// encodeStruct renders v through its JSON form into a protobuf Struct.
func encodeStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
