package database

import (
	"context"
	"fmt"
	"time"

	"roombook/internal/models"
)

const reservationSelect = `SELECT r.id, r.room_id, r.slot_id, r.owner_id, r.date, r.purpose,
                 r.attendee_count, r.created_at, r.updated_at,
                 s.day_of_week, s.start_time, s.end_time
          FROM reservations r
          JOIN time_slots s ON s.id = r.slot_id`

func (s *Queries) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `INSERT INTO reservations (
				room_id, slot_id, owner_id, date, purpose, attendee_count, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	result, err := s.q.ExecContext(ctx, query,
		r.RoomID,
		r.SlotID,
		r.OwnerID,
		r.Date.Format(models.DateLayout),
		r.Purpose,
		r.AttendeeCount,
		createdAt,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = createdAt
	r.UpdatedAt = createdAt
	return nil
}

func (s *Queries) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	res, err := scanReservation(s.q.QueryRowContext(ctx, reservationSelect+` WHERE r.id = ?`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// GetReservationsByRoom возвращает все бронирования аудитории вместе с их слотами
func (s *Queries) GetReservationsByRoom(ctx context.Context, roomID int64) ([]*models.Reservation, error) {
	list, err := s.queryReservations(ctx, reservationSelect+` WHERE r.room_id = ? ORDER BY r.date, s.start_time, r.id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by room: %w", err)
	}
	return list, nil
}

// GetAllReservations is used for full resyncs of the Sheets mirror.
func (s *Queries) GetAllReservations(ctx context.Context) ([]*models.Reservation, error) {
	list, err := s.queryReservations(ctx, reservationSelect+` ORDER BY r.date, s.start_time, r.room_id, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations: %w", err)
	}
	return list, nil
}

func (s *Queries) queryReservations(ctx context.Context, query string, args ...interface{}) ([]*models.Reservation, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// UpdateReservation rewrites the mutable columns. owner_id and created_at are
// never touched.
func (s *Queries) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	query := `UPDATE reservations
              SET room_id = ?, slot_id = ?, date = ?, purpose = ?, attendee_count = ?, updated_at = ?
              WHERE id = ?`
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	result, err := s.q.ExecContext(ctx, query,
		r.RoomID,
		r.SlotID,
		r.Date.Format(models.DateLayout),
		r.Purpose,
		r.AttendeeCount,
		updatedAt,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", mapError(err))
	}
	if err := expectAffected(result); err != nil {
		return err
	}
	r.UpdatedAt = updatedAt
	return nil
}

func (s *Queries) DeleteReservation(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return expectAffected(result)
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		res             models.Reservation
		date            string
		day, start, end string
	)
	err := row.Scan(
		&res.ID, &res.RoomID, &res.SlotID, &res.OwnerID, &date, &res.Purpose,
		&res.AttendeeCount, &res.CreatedAt, &res.UpdatedAt,
		&day, &start, &end,
	)
	if err != nil {
		return nil, err
	}

	if res.Date, err = models.ParseDate(date); err != nil {
		return nil, err
	}
	slot := models.TimeSlot{ID: res.SlotID}
	if err := fillSlot(&slot, day, start, end); err != nil {
		return nil, err
	}
	res.Slot = &slot
	return &res, nil
}
