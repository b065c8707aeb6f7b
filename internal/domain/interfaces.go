package domain

import (
	"context"
	"time"

	"roombook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ReservationQueries is the set of reads and writes the booking core needs.
// It is implemented both by the store and by an open transaction.
type ReservationQueries interface {
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetTimeSlot(ctx context.Context, id int64) (*models.TimeSlot, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationsByRoom(ctx context.Context, roomID int64) ([]*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	DeleteReservation(ctx context.Context, id int64) error
}

// BookingRepository runs ReservationQueries inside one atomic unit.
type BookingRepository interface {
	ReservationQueries
	WithTx(ctx context.Context, fn func(q ReservationQueries) error) error
}

type CatalogRepository interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, id int64) error
	CreateTimeSlot(ctx context.Context, slot *models.TimeSlot) error
	GetTimeSlot(ctx context.Context, id int64) (*models.TimeSlot, error)
	ListTimeSlots(ctx context.Context) ([]*models.TimeSlot, error)
	DeleteTimeSlot(ctx context.Context, id int64) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type SyncQueueRepository interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertReservation(ctx context.Context, r *models.Reservation) error
	DeleteReservation(ctx context.Context, reservationID int64) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, reservationID int64, r *models.Reservation) error
}
