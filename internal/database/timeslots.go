package database

import (
	"context"
	"database/sql"
	"fmt"

	"roombook/internal/models"
)

func (s *Queries) CreateTimeSlot(ctx context.Context, slot *models.TimeSlot) error {
	query := `INSERT INTO time_slots (day_of_week, start_time, end_time) VALUES (?, ?, ?)`
	result, err := s.q.ExecContext(ctx, query, string(slot.DayOfWeek), slot.StartTime.String(), slot.EndTime.String())
	if err != nil {
		return fmt.Errorf("failed to create time slot: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	slot.ID = id
	return nil
}

func (s *Queries) GetTimeSlot(ctx context.Context, id int64) (*models.TimeSlot, error) {
	query := `SELECT id, day_of_week, start_time, end_time FROM time_slots WHERE id = ?`
	slot, err := scanTimeSlot(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return slot, nil
}

// ListTimeSlots returns slots in week order, then by start time.
func (s *Queries) ListTimeSlots(ctx context.Context) ([]*models.TimeSlot, error) {
	query := `SELECT id, day_of_week, start_time, end_time FROM time_slots
              ORDER BY CASE day_of_week
                WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3
                WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6
                ELSE 7 END, start_time, id`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.TimeSlot
	for rows.Next() {
		slot, err := scanTimeSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// DeleteTimeSlot fails with ErrReferenced while reservations use the slot.
func (s *Queries) DeleteTimeSlot(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM time_slots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete time slot: %w", mapError(err))
	}
	return expectAffected(result)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTimeSlot(row rowScanner) (*models.TimeSlot, error) {
	var (
		slot       models.TimeSlot
		day        string
		start, end string
	)
	if err := row.Scan(&slot.ID, &day, &start, &end); err != nil {
		return nil, err
	}
	if err := fillSlot(&slot, day, start, end); err != nil {
		return nil, err
	}
	return &slot, nil
}

func fillSlot(slot *models.TimeSlot, day, start, end string) error {
	var err error
	if slot.DayOfWeek, err = models.ParseDayOfWeek(day); err != nil {
		return err
	}
	if slot.StartTime, err = models.ParseTimeOfDay(start); err != nil {
		return err
	}
	if slot.EndTime, err = models.ParseTimeOfDay(end); err != nil {
		return err
	}
	return nil
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
