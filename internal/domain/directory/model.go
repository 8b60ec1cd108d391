package directory

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctors table. UserID links the profile to its
// login account; slots_per_day caps approved appointments per calendar
// day.
type Doctor struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Name           string     `db:"name" json:"name"`
	Specialization string     `db:"specialization" json:"specialization"`
	SlotsPerDay    int        `db:"slots_per_day" json:"slots_per_day"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
