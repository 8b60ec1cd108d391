package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Every appointment starts pending; an admin
// decision moves it to approved or rejected.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Appointment maps to the appointments table. Date is the calendar day
// being booked; Time is an opaque display string chosen by the patient.
// DoctorName and PatientUsername are joined in by list queries.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"appointment_date" json:"appointment_date"`
	Time      string    `db:"appointment_time" json:"appointment_time"`
	Reason    string    `db:"reason" json:"reason"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	DoctorName      string `db:"-" json:"doctor_name,omitempty"`
	PatientUsername string `db:"-" json:"patient_username,omitempty"`
}

// Stats aggregates appointment counts for dashboards.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Availability describes a doctor's remaining capacity on one day.
// Booked counts approved appointments only.
type Availability struct {
	AvailableSlots int `json:"available_slots"`
	TotalSlots     int `json:"total_slots"`
	BookedSlots    int `json:"booked_slots"`
}
