package identity

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table. Every actor in the system is a user; the
// role field decides which route groups accept their session.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	DateOfBirth  *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
