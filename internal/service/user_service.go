package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo        domain.UserRepository
	defaultRole string
	logger      *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, defaultRole string, logger *zerolog.Logger) *UserService {
	if defaultRole == "" {
		defaultRole = models.RoleProfessor
	}
	return &UserService{
		repo:        repo,
		defaultRole: defaultRole,
		logger:      logger,
	}
}

// Register creates a self-registered user with the configured default role.
func (s *UserService) Register(ctx context.Context, email, name string) (*models.User, error) {
	return s.CreateUser(ctx, models.User{Email: email, Name: name, Role: s.defaultRole})
}

// CreateUser stores a user with an explicit role; an empty role gets the default.
func (s *UserService) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Name = strings.TrimSpace(user.Name)
	if user.Role == "" {
		user.Role = s.defaultRole
	}

	if addr, err := mail.ParseAddress(user.Email); err != nil || addr.Address != user.Email {
		return nil, invalid(ErrInvalidInput, "invalid email %q", user.Email)
	}
	if user.Name == "" {
		return nil, invalid(ErrInvalidInput, "name is required")
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleProfessor {
		return nil, invalid(ErrInvalidInput, "unknown role %q", user.Role)
	}

	if err := s.repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, invalid(ErrInvalidInput, "email %s is already registered", user.Email)
		}
		return nil, storeErr("create user", err, "user", user.Email)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user registered")
	return &user, nil
}

// FindUser looks a user up by numeric id or by email.
func (s *UserService) FindUser(ctx context.Context, key string) (*models.User, error) {
	key = strings.TrimSpace(key)
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return s.GetUserByID(ctx, id)
	}
	return s.GetUserByEmail(ctx, key)
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr("get user", err, "user", id)
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, storeErr("get user", err, "user", email)
	}
	return user, nil
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.GetAllUsers(ctx)
	if err != nil {
		return nil, storeErr("get users", err, "user", "*")
	}
	return users, nil
}

// DeleteUser refuses to remove a user who still owns reservations.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	err := s.repo.DeleteUser(ctx, id)
	if errors.Is(err, database.ErrReferenced) {
		return fmt.Errorf("user %d: %w", id, ErrInUse)
	}
	return storeErr("delete user", err, "user", id)
}

// Requester builds the identity of a stored user for booking operations.
func (s *UserService) Requester(user *models.User, adminOverride bool) models.Requester {
	return models.Requester{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: adminOverride || user.IsAdmin(),
	}
}
