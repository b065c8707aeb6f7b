package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roombook/internal/models"
	"roombook/internal/service"

	"github.com/rs/zerolog"
)

type RoomStore interface {
	ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error)
	CreateRoom(ctx context.Context, room models.Room) (*models.Room, error)
	ListTimeSlots(ctx context.Context) ([]*models.TimeSlot, error)
	CreateTimeSlot(ctx context.Context, slot models.TimeSlot) (*models.TimeSlot, error)
}

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
}

// Result counts what Apply created and what already existed.
type Result struct {
	RoomsCreated, RoomsSkipped int
	SlotsCreated, SlotsSkipped int
	UsersCreated, UsersSkipped int
}

func (r Result) String() string {
	return fmt.Sprintf("rooms %d/%d, time slots %d/%d, users %d/%d (created/skipped)",
		r.RoomsCreated, r.RoomsSkipped, r.SlotsCreated, r.SlotsSkipped, r.UsersCreated, r.UsersSkipped)
}

// Apply seeds the catalog through the services so every entry passes the
// same validation as an API write. Rooms match by name (case-insensitive),
// slots by day and times, users by email; existing entries are left as they
// are.
func Apply(ctx context.Context, cat *Catalog, rooms RoomStore, users UserStore, logger *zerolog.Logger) (Result, error) {
	var res Result
	if cat == nil {
		return res, nil
	}

	existingRooms, err := rooms.ListRooms(ctx, models.RoomFilter{})
	if err != nil {
		return res, err
	}
	names := make(map[string]bool, len(existingRooms))
	for _, r := range existingRooms {
		names[strings.ToLower(r.Name)] = true
	}
	for _, r := range cat.Rooms {
		key := strings.ToLower(strings.TrimSpace(r.Name))
		if names[key] {
			res.RoomsSkipped++
			continue
		}
		if _, err := rooms.CreateRoom(ctx, models.Room{Name: strings.TrimSpace(r.Name), Capacity: r.Capacity, HasComputers: r.HasComputers}); err != nil {
			return res, fmt.Errorf("room %q: %w", r.Name, err)
		}
		names[key] = true
		res.RoomsCreated++
	}

	existingSlots, err := rooms.ListTimeSlots(ctx)
	if err != nil {
		return res, err
	}
	slots := make(map[string]bool, len(existingSlots))
	for _, s := range existingSlots {
		slots[s.String()] = true
	}
	for _, seed := range cat.TimeSlots {
		slot, err := seed.TimeSlot()
		if err != nil {
			return res, fmt.Errorf("time slot %s %s-%s: %w", seed.Day, seed.Start, seed.End, err)
		}
		if slots[slot.String()] {
			res.SlotsSkipped++
			continue
		}
		if _, err := rooms.CreateTimeSlot(ctx, slot); err != nil {
			return res, fmt.Errorf("time slot %s: %w", slot, err)
		}
		slots[slot.String()] = true
		res.SlotsCreated++
	}

	for _, u := range cat.Users {
		_, err := users.GetUserByEmail(ctx, u.Email)
		switch {
		case err == nil:
			res.UsersSkipped++
			continue
		case !errors.Is(err, service.ErrNotFound):
			return res, fmt.Errorf("user %s: %w", u.Email, err)
		}
		if _, err := users.CreateUser(ctx, models.User{Email: u.Email, Name: u.Name, Role: strings.ToUpper(strings.TrimSpace(u.Role))}); err != nil {
			return res, fmt.Errorf("user %s: %w", u.Email, err)
		}
		res.UsersCreated++
	}

	if logger != nil {
		logger.Info().
			Int("rooms_created", res.RoomsCreated).
			Int("slots_created", res.SlotsCreated).
			Int("users_created", res.UsersCreated).
			Msg("catalog applied")
	}
	return res, nil
}
