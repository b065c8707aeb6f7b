package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"roombook/internal/models"
	"roombook/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var body reservationBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.svc.Booking.Create(r.Context(), req, requesterFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleValidateReservation is a dry run: rule violations come back as
// {"valid": false} with 200, only infrastructure failures are errors.
func (s *HTTPServer) handleValidateReservation(w http.ResponseWriter, r *http.Request) {
	var body reservationBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	req, err := body.toRequest()
	if err == nil {
		err = s.svc.Booking.ValidateRequest(r.Context(), req, body.ExcludeID)
	}

	var (
		ve *service.ValidationError
		nf *service.NotFoundError
	)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
	case errors.As(err, &ve), errors.As(err, &nf):
		e := classify(err)
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "code": e.Code, "error": e.Message})
	default:
		s.writeServiceError(w, r, err)
	}
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.Booking.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var body reservationPatchBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	patch, err := body.toPatch()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.svc.Booking.Update(r.Context(), id, patch, requesterFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Booking.Delete(r.Context(), id, requesterFrom(r.Context())); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	var filter models.RoomFilter
	q := r.URL.Query()
	if v := q.Get("min_capacity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeServiceError(w, r, invalidInput("invalid min_capacity %q", v))
			return
		}
		filter.MinCapacity = n
	}
	if v := q.Get("has_computers"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeServiceError(w, r, invalidInput("invalid has_computers %q", v))
			return
		}
		filter.HasComputers = &b
	}

	rooms, err := s.svc.Catalog.ListRooms(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": nonNil(rooms)})
}

func (s *HTTPServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var room models.Room
	if err := decodeJSON(w, r, &room); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	created, err := s.svc.Catalog.CreateRoom(r.Context(), room)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	room, err := s.svc.Catalog.GetRoom(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *HTTPServer) handleRoomReservations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	list, err := s.svc.Booking.ListByRoom(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": nonNil(list)})
}

func (s *HTTPServer) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var patch models.RoomPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	room, err := s.svc.Catalog.UpdateRoom(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *HTTPServer) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeleteRoom(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListTimeSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.svc.Catalog.ListTimeSlots(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"time_slots": nonNil(slots)})
}

func (s *HTTPServer) handleCreateTimeSlot(w http.ResponseWriter, r *http.Request) {
	var slot models.TimeSlot
	if err := decodeJSON(w, r, &slot); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	day, err := models.ParseDayOfWeek(string(slot.DayOfWeek))
	if err != nil {
		s.writeServiceError(w, r, invalidInput("%v", err))
		return
	}
	slot.DayOfWeek = day

	created, err := s.svc.Catalog.CreateTimeSlot(r.Context(), slot)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleGetTimeSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	slot, err := s.svc.Catalog.GetTimeSlot(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *HTTPServer) handleDeleteTimeSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeleteTimeSlot(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.GetAllUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": nonNil(users)})
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	user, err := s.svc.Users.CreateUser(r.Context(), models.User{
		Email: body.Email,
		Name:  body.Name,
		Role:  strings.ToUpper(strings.TrimSpace(body.Role)),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.FindUser(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "key")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Users.DeleteUser(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil keeps empty lists as [] rather than null in JSON.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
