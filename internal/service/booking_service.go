package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/metrics"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

// BookingService validates and commits reservation writes. Every write reads
// the room's current reservations inside the same transaction it writes in.
type BookingService struct {
	repo         domain.BookingRepository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	clock        Clock
	location     *time.Location
	logger       *zerolog.Logger
}

func NewBookingService(
	repo domain.BookingRepository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	clock Clock,
	location *time.Location,
	logger *zerolog.Logger,
) *BookingService {
	if clock == nil {
		clock = SystemClock
	}
	if location == nil {
		location = time.Local
	}
	return &BookingService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		clock:        clock,
		location:     location,
		logger:       logger,
	}
}

// Validate runs the ordered checks on a candidate: date not in the past,
// attendees within capacity, no overlapping reservation. The first failure
// is returned. existing must be the reservations of room; excludeID is the
// candidate's own id on update and 0 on create.
func (s *BookingService) Validate(candidate models.Reservation, room models.Room, existing []*models.Reservation, excludeID int64) error {
	if day := today(s.clock, s.location); candidate.Date.Before(day) {
		return invalid(ErrPastDate, "%s is before %s",
			candidate.Date.Format(models.DateLayout), day.Format(models.DateLayout))
	}

	if candidate.AttendeeCount > room.Capacity {
		return invalid(ErrCapacityExceeded, "%d attendees, room %q holds %d",
			candidate.AttendeeCount, room.Name, room.Capacity)
	}

	if HasConflict(candidate, existing, excludeID) {
		slot := ""
		if candidate.Slot != nil {
			slot = candidate.Slot.String()
		}
		return invalid(ErrSlotConflict, "room %q is already reserved on %s overlapping %s",
			room.Name, candidate.Date.Format(models.DateLayout), slot)
	}

	return nil
}

// Create books a room for the requester.
func (s *BookingService) Create(ctx context.Context, req models.ReservationRequest, requester models.Requester) (*models.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, s.observe("create", &ValidationError{Kind: ErrInvalidInput, Reason: err.Error()})
	}

	var (
		created *models.Reservation
		room    *models.Room
	)
	err := s.repo.WithTx(ctx, func(q domain.ReservationQueries) error {
		owner, err := s.resolveOwner(ctx, q, requester)
		if err != nil {
			return err
		}

		room, err = q.GetRoom(ctx, req.RoomID)
		if err != nil {
			return storeErr("get room", err, "room", req.RoomID)
		}
		slot, err := q.GetTimeSlot(ctx, req.SlotID)
		if err != nil {
			return storeErr("get time slot", err, "time slot", req.SlotID)
		}

		now := s.clock.Now()
		candidate := models.Reservation{
			RoomID:        room.ID,
			SlotID:        slot.ID,
			OwnerID:       owner.ID,
			Date:          models.CalendarDate(req.Date),
			Purpose:       strings.TrimSpace(req.Purpose),
			AttendeeCount: req.AttendeeCount,
			CreatedAt:     now,
			UpdatedAt:     now,
			Slot:          slot,
		}

		existing, err := q.GetReservationsByRoom(ctx, room.ID)
		if err != nil {
			return storeErr("get room reservations", err, "room", room.ID)
		}
		if err := s.Validate(candidate, *room, existing, 0); err != nil {
			return err
		}

		if err := q.CreateReservation(ctx, &candidate); err != nil {
			return writeErr("create reservation", err, candidate)
		}
		created = &candidate
		return nil
	})
	if err != nil {
		return nil, s.observe("create", storeErr("create reservation", err, "reservation", 0))
	}

	s.observe("create", nil)
	s.afterCommit(ctx, events.EventReservationCreated, created, room, requester)
	return created, nil
}

// Update applies patch to reservation id and re-validates the result in
// full. Owner and creation time never change.
func (s *BookingService) Update(ctx context.Context, id int64, patch models.ReservationPatch, requester models.Requester) (*models.Reservation, error) {
	var (
		updated *models.Reservation
		room    *models.Room
		noop    bool
	)
	err := s.repo.WithTx(ctx, func(q domain.ReservationQueries) error {
		current, err := q.GetReservation(ctx, id)
		if err != nil {
			return storeErr("get reservation", err, "reservation", id)
		}
		if err := s.authorize(ctx, q, requester, current, "update"); err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated, noop = current, true
			return nil
		}

		merged := patch.Merge(*current)
		if err := merged.Validate(); err != nil {
			return &ValidationError{Kind: ErrInvalidInput, Reason: err.Error()}
		}

		room, err = q.GetRoom(ctx, merged.RoomID)
		if err != nil {
			return storeErr("get room", err, "room", merged.RoomID)
		}
		if merged.Slot == nil {
			slot, err := q.GetTimeSlot(ctx, merged.SlotID)
			if err != nil {
				return storeErr("get time slot", err, "time slot", merged.SlotID)
			}
			merged.Slot = slot
		}

		existing, err := q.GetReservationsByRoom(ctx, room.ID)
		if err != nil {
			return storeErr("get room reservations", err, "room", room.ID)
		}
		if err := s.Validate(merged, *room, existing, id); err != nil {
			return err
		}

		merged.UpdatedAt = s.clock.Now()
		if err := q.UpdateReservation(ctx, &merged); err != nil {
			return writeErr("update reservation", err, merged)
		}
		updated = &merged
		return nil
	})
	if err != nil {
		return nil, s.observe("update", storeErr("update reservation", err, "reservation", id))
	}

	if noop {
		return updated, nil
	}
	s.observe("update", nil)
	s.afterCommit(ctx, events.EventReservationUpdated, updated, room, requester)
	return updated, nil
}

// Delete removes reservation id. Only its owner or an administrator may do so.
func (s *BookingService) Delete(ctx context.Context, id int64, requester models.Requester) error {
	var deleted *models.Reservation
	err := s.repo.WithTx(ctx, func(q domain.ReservationQueries) error {
		current, err := q.GetReservation(ctx, id)
		if err != nil {
			return storeErr("get reservation", err, "reservation", id)
		}
		if err := s.authorize(ctx, q, requester, current, "delete"); err != nil {
			return err
		}
		if err := q.DeleteReservation(ctx, id); err != nil {
			return storeErr("delete reservation", err, "reservation", id)
		}
		deleted = current
		return nil
	})
	if err != nil {
		return s.observe("delete", storeErr("delete reservation", err, "reservation", id))
	}

	s.observe("delete", nil)
	s.afterCommit(ctx, events.EventReservationDeleted, deleted, nil, requester)
	return nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Reservation, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, storeErr("get reservation", err, "reservation", id)
	}
	return res, nil
}

// ListByRoom returns the room's reservations ordered by date and start time.
func (s *BookingService) ListByRoom(ctx context.Context, roomID int64) ([]*models.Reservation, error) {
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, storeErr("get room", err, "room", roomID)
	}
	list, err := s.repo.GetReservationsByRoom(ctx, roomID)
	if err != nil {
		return nil, storeErr("get room reservations", err, "room", roomID)
	}
	return list, nil
}

// ValidateRequest runs the same checks as Create, or as Update when
// excludeID is set, without writing anything.
func (s *BookingService) ValidateRequest(ctx context.Context, req models.ReservationRequest, excludeID int64) error {
	if err := req.Validate(); err != nil {
		return &ValidationError{Kind: ErrInvalidInput, Reason: err.Error()}
	}

	room, err := s.repo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return storeErr("get room", err, "room", req.RoomID)
	}
	slot, err := s.repo.GetTimeSlot(ctx, req.SlotID)
	if err != nil {
		return storeErr("get time slot", err, "time slot", req.SlotID)
	}
	existing, err := s.repo.GetReservationsByRoom(ctx, room.ID)
	if err != nil {
		return storeErr("get room reservations", err, "room", room.ID)
	}

	candidate := models.Reservation{
		ID:            excludeID,
		RoomID:        room.ID,
		SlotID:        slot.ID,
		Date:          models.CalendarDate(req.Date),
		Purpose:       strings.TrimSpace(req.Purpose),
		AttendeeCount: req.AttendeeCount,
		Slot:          slot,
	}
	return s.Validate(candidate, *room, existing, excludeID)
}

// resolveOwner finds the stored user behind the requester, by id first.
func (s *BookingService) resolveOwner(ctx context.Context, q domain.ReservationQueries, requester models.Requester) (*models.User, error) {
	switch {
	case requester.UserID != 0:
		user, err := q.GetUserByID(ctx, requester.UserID)
		if err != nil {
			return nil, storeErr("get user", err, "user", requester.UserID)
		}
		return user, nil
	case requester.Email != "":
		user, err := q.GetUserByEmail(ctx, requester.Email)
		if err != nil {
			return nil, storeErr("get user", err, "user", requester.Email)
		}
		return user, nil
	}
	return nil, notFound("user", "<anonymous>")
}

func (s *BookingService) authorize(ctx context.Context, q domain.ReservationQueries, requester models.Requester, res *models.Reservation, action string) error {
	if requester.IsAdmin || requester.Owns(res) {
		return nil
	}
	if requester.UserID == 0 && requester.Email != "" {
		user, err := q.GetUserByEmail(ctx, requester.Email)
		switch {
		case err == nil:
			if user.ID == res.OwnerID || user.IsAdmin() {
				return nil
			}
		case !errors.Is(err, database.ErrNotFound):
			return storeErr("get user", err, "user", requester.Email)
		}
	}
	return &ForbiddenError{Action: action, ReservationID: res.ID, UserID: requester.UserID}
}

// writeErr maps a failed insert or update. A unique index hit means a
// concurrent writer took the slot first.
func writeErr(op string, err error, r models.Reservation) error {
	switch {
	case errors.Is(err, database.ErrDuplicate):
		return invalid(ErrSlotConflict, "slot %d in room %d is already reserved on %s",
			r.SlotID, r.RoomID, r.Date.Format(models.DateLayout))
	case errors.Is(err, database.ErrReferenced):
		return notFound("room or time slot", fmt.Sprintf("%d/%d", r.RoomID, r.SlotID))
	}
	return storeErr(op, err, "reservation", r.ID)
}

func (s *BookingService) observe(op string, err error) error {
	metrics.IncReservationOp(op, outcome(err))
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPastDate):
		return "past_date"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	}
	return "storage_error"
}

// afterCommit publishes the event and queues the Sheets mirror update.
// Failures here never affect the committed result.
func (s *BookingService) afterCommit(ctx context.Context, eventType string, res *models.Reservation, room *models.Room, requester models.Requester) {
	if res == nil {
		return
	}

	if s.eventBus != nil {
		payload := events.ReservationEventPayload{
			ReservationID: res.ID,
			RoomID:        res.RoomID,
			SlotID:        res.SlotID,
			Date:          res.Date.Format(models.DateLayout),
			Purpose:       res.Purpose,
			AttendeeCount: res.AttendeeCount,
			OwnerID:       res.OwnerID,
			ChangedByID:   requester.UserID,
		}
		if room != nil {
			payload.RoomName = room.Name
		}
		if res.Slot != nil {
			payload.Slot = res.Slot.String()
		}
		if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
			s.logger.Warn().Err(err).Str("event_type", eventType).Int64("reservation_id", res.ID).Msg("publish event error")
		}
	}

	if s.sheetsWorker != nil {
		taskType := models.SyncTaskUpsert
		if eventType == events.EventReservationDeleted {
			taskType = models.SyncTaskDelete
		}
		if err := s.sheetsWorker.EnqueueTask(ctx, taskType, res.ID, res); err != nil {
			s.logger.Warn().Err(err).Int64("reservation_id", res.ID).Str("task", taskType).Msg("sheets enqueue error")
		}
	}
}
