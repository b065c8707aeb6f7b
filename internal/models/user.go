package models

import "time"

const (
	RoleAdmin     = "ADMIN"
	RoleProfessor = "PROFESSOR"
)

type User struct {
	ID        int64     `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Name      string    `json:"name" yaml:"name"`
	Role      string    `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Requester is the authenticated caller of a booking operation.
type Requester struct {
	UserID  int64
	Email   string
	IsAdmin bool
}

// Owns reports whether the requester created the reservation.
func (r Requester) Owns(res *Reservation) bool {
	return res != nil && r.UserID != 0 && r.UserID == res.OwnerID
}
