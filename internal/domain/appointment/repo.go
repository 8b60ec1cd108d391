package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for appointments. List
// orderings differ by audience: patient and doctor views sort by the
// appointment day, admin views by submission time.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// ListByPatient orders by appointment_date DESC.
	ListByPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error)
	// RecentByPatient orders by created_at DESC, capped at n.
	RecentByPatient(ctx context.Context, patientID uuid.UUID, n int) ([]*Appointment, error)
	// ListByDoctor orders by appointment_date DESC.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error)
	// ListAll orders by created_at DESC.
	ListAll(ctx context.Context, status string, limit, offset int) ([]*Appointment, int, error)

	// CountApproved counts approved appointments for a doctor on a day.
	CountApproved(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)
	// Stats aggregates counts; uuid.Nil means unscoped.
	Stats(ctx context.Context, patientID, doctorID uuid.UUID) (Stats, error)
}
