package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roombook/internal/models"
)

const roomColumns = `id, name, capacity, has_computers, created_at, updated_at`

func (s *Queries) CreateRoom(ctx context.Context, room *models.Room) error {
	query := `INSERT INTO rooms (name, capacity, has_computers, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := s.q.ExecContext(ctx, query, room.Name, room.Capacity, room.HasComputers, now, now)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

func (s *Queries) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	var room models.Room
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.Capacity, &room.HasComputers, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &room, nil
}

// ListRooms возвращает аудитории, подходящие под фильтр, упорядоченные по имени
func (s *Queries) ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.MinCapacity > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, filter.MinCapacity)
	}
	if filter.HasComputers != nil {
		where = append(where, "has_computers = ?")
		args = append(args, *filter.HasComputers)
	}

	query := `SELECT ` + roomColumns + ` FROM rooms`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		r := &models.Room{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Capacity, &r.HasComputers, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *Queries) UpdateRoom(ctx context.Context, room *models.Room) error {
	query := `UPDATE rooms SET name = ?, capacity = ?, has_computers = ?, updated_at = ? WHERE id = ?`
	now := time.Now()
	result, err := s.q.ExecContext(ctx, query, room.Name, room.Capacity, room.HasComputers, now, room.ID)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", mapError(err))
	}
	if err := expectAffected(result); err != nil {
		return err
	}
	room.UpdatedAt = now
	return nil
}

// DeleteRoom removes the room; its reservations go with it (ON DELETE CASCADE).
func (s *Queries) DeleteRoom(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", mapError(err))
	}
	return expectAffected(result)
}
