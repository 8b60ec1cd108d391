package records

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is an append-only clinical note for a visit. Records are
// never updated or deleted once written.
type MedicalRecord struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	Diagnosis    string    `json:"diagnosis"`
	Prescription *string   `json:"prescription,omitempty"`
	VisitDate    time.Time `json:"visit_date"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	// Filled by joins for display, not stored on the record row.
	DoctorName      string `json:"doctor_name,omitempty" db:"-"`
	PatientUsername string `json:"patient_username,omitempty" db:"-"`
}

// PatientGroup collects one patient's records for the doctor's grouped view.
type PatientGroup struct {
	PatientID uuid.UUID        `json:"patient_id"`
	Username  string           `json:"username"`
	Records   []*MedicalRecord `json:"records"`
}
