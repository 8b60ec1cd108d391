package records

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists medical records. The store is append-only: there
// are no update or delete operations.
type Repository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	// ListByPatient returns a patient's full cross-doctor history,
	// most recent visit first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error)
	// ListByDoctor returns every record the doctor wrote, ordered by
	// patient username and then most recent visit first, ready for
	// per-patient grouping.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*MedicalRecord, error)
}
