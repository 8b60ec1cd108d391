package directory

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for doctor profiles.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	UpdateSlots(ctx context.Context, id uuid.UUID, slots int) error
	Count(ctx context.Context) (int, error)
}
