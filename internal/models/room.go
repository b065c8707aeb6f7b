package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	RoomNameMinLength = 2
	RoomNameMaxLength = 50
)

type Room struct {
	ID           int64     `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Capacity     int       `json:"capacity" yaml:"capacity"`
	HasComputers bool      `json:"has_computers" yaml:"has_computers"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

func (r Room) Validate() error {
	name := strings.TrimSpace(r.Name)
	if n := len([]rune(name)); n < RoomNameMinLength || n > RoomNameMaxLength {
		return fmt.Errorf("room name must be between %d and %d characters", RoomNameMinLength, RoomNameMaxLength)
	}
	if r.Capacity < 1 {
		return fmt.Errorf("room capacity must be at least 1")
	}
	return nil
}

// RoomPatch carries the fields of a partial room update; nil means unchanged.
type RoomPatch struct {
	Name         *string `json:"name,omitempty"`
	Capacity     *int    `json:"capacity,omitempty"`
	HasComputers *bool   `json:"has_computers,omitempty"`
}

// Merge applies the present fields of p on top of r.
func (p RoomPatch) Merge(r Room) Room {
	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.Capacity != nil {
		r.Capacity = *p.Capacity
	}
	if p.HasComputers != nil {
		r.HasComputers = *p.HasComputers
	}
	return r
}

// RoomFilter narrows ListRooms. Zero values disable a criterion.
type RoomFilter struct {
	MinCapacity  int
	HasComputers *bool
}
