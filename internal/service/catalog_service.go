package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService administers rooms and time slots.
type CatalogService struct {
	repo   domain.CatalogRepository
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.CatalogRepository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

func (s *CatalogService) CreateRoom(ctx context.Context, room models.Room) (*models.Room, error) {
	room.Name = strings.TrimSpace(room.Name)
	if err := room.Validate(); err != nil {
		return nil, &ValidationError{Kind: ErrInvalidInput, Reason: err.Error()}
	}
	if err := s.repo.CreateRoom(ctx, &room); err != nil {
		return nil, storeErr("create room", err, "room", room.Name)
	}
	s.logger.Info().Int64("room_id", room.ID).Str("name", room.Name).Msg("room created")
	return &room, nil
}

func (s *CatalogService) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, storeErr("get room", err, "room", id)
	}
	return room, nil
}

func (s *CatalogService) ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	rooms, err := s.repo.ListRooms(ctx, filter)
	if err != nil {
		return nil, storeErr("list rooms", err, "room", "*")
	}
	return rooms, nil
}

// UpdateRoom merges patch into the stored room and re-validates it.
func (s *CatalogService) UpdateRoom(ctx context.Context, id int64, patch models.RoomPatch) (*models.Room, error) {
	current, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, storeErr("get room", err, "room", id)
	}

	merged := patch.Merge(*current)
	if err := merged.Validate(); err != nil {
		return nil, &ValidationError{Kind: ErrInvalidInput, Reason: err.Error()}
	}
	if err := s.repo.UpdateRoom(ctx, &merged); err != nil {
		return nil, storeErr("update room", err, "room", id)
	}
	return &merged, nil
}

// DeleteRoom removes the room together with all of its reservations.
func (s *CatalogService) DeleteRoom(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRoom(ctx, id); err != nil {
		return storeErr("delete room", err, "room", id)
	}
	s.logger.Info().Int64("room_id", id).Msg("room deleted")
	return nil
}

func (s *CatalogService) CreateTimeSlot(ctx context.Context, slot models.TimeSlot) (*models.TimeSlot, error) {
	if err := slot.Validate(); err != nil {
		return nil, &ValidationError{Kind: ErrInvalidInput, Reason: err.Error()}
	}
	if err := s.repo.CreateTimeSlot(ctx, &slot); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, invalid(ErrInvalidInput, "time slot %s already exists", slot)
		}
		return nil, storeErr("create time slot", err, "time slot", slot.String())
	}
	return &slot, nil
}

func (s *CatalogService) GetTimeSlot(ctx context.Context, id int64) (*models.TimeSlot, error) {
	slot, err := s.repo.GetTimeSlot(ctx, id)
	if err != nil {
		return nil, storeErr("get time slot", err, "time slot", id)
	}
	return slot, nil
}

func (s *CatalogService) ListTimeSlots(ctx context.Context) ([]*models.TimeSlot, error) {
	slots, err := s.repo.ListTimeSlots(ctx)
	if err != nil {
		return nil, storeErr("list time slots", err, "time slot", "*")
	}
	return slots, nil
}

// DeleteTimeSlot refuses to remove a slot that reservations still use.
func (s *CatalogService) DeleteTimeSlot(ctx context.Context, id int64) error {
	err := s.repo.DeleteTimeSlot(ctx, id)
	if errors.Is(err, database.ErrReferenced) {
		return fmt.Errorf("time slot %d: %w", id, ErrInUse)
	}
	return storeErr("delete time slot", err, "time slot", id)
}
