package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for users. Implementations
// translate missing rows into apperr NotFound and driver failures into
// apperr Persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, email string, dob *time.Time) error
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*User, int, error)
	CountByRole(ctx context.Context, role string) (int, error)
}
