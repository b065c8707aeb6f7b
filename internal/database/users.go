package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roombook/internal/models"
)

const userColumns = `id, email, name, role, created_at, updated_at`

func (s *Queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (email, name, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := s.q.ExecContext(ctx, query,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.Name,
		user.Role,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
}

func (s *Queries) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := s.q.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (s *Queries) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser fails with ErrReferenced while the user owns reservations.
func (s *Queries) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", mapError(err))
	}
	return expectAffected(result)
}
