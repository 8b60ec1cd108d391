package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/mediflow/internal/domain/directory"
	"github.com/mediflow/mediflow/internal/domain/identity"
	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/notification"
)

// DateLayout is the wire format for the appointment day.
const DateLayout = "2006-01-02"

// RecentLimit caps the patient dashboard's recent-bookings list.
const RecentLimit = 5

type notifier interface {
	Notify(ctx context.Context, templateID, recipient string, data map[string]string)
}

type metrics interface {
	AppointmentBooked()
	AppointmentDecided(status string)
}

type nopMetrics struct{}

func (nopMetrics) AppointmentBooked()        {}
func (nopMetrics) AppointmentDecided(string) {}

type Service struct {
	appts    Repository
	doctors  directory.Repository
	users    identity.Repository
	notifier notifier
	metrics  metrics
}

func NewService(appts Repository, doctors directory.Repository, users identity.Repository, n notifier, m metrics) *Service {
	if m == nil {
		m = nopMetrics{}
	}
	return &Service{appts: appts, doctors: doctors, users: users, notifier: n, metrics: m}
}

// BookInput carries the patient booking form.
type BookInput struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"appointment_date"`
	Time     string `json:"appointment_time"`
	Reason   string `json:"reason"`
}

// Book submits a pending appointment request. Capacity is checked
// against approved appointments only: pending requests never consume a
// slot, so any number of them may pile up on the same day.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, in BookInput) (*Appointment, error) {
	in.Time = strings.TrimSpace(in.Time)
	if in.DoctorID == "" || in.Date == "" || in.Time == "" {
		return nil, apperr.E(apperr.KindValidation, "doctor, date and time are required")
	}
	doctorID, err := uuid.Parse(in.DoctorID)
	if err != nil {
		return nil, apperr.E(apperr.KindValidation, "invalid doctor_id")
	}
	date, err := time.Parse(DateLayout, in.Date)
	if err != nil {
		return nil, apperr.E(apperr.KindValidation, "invalid appointment date, expected YYYY-MM-DD")
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return nil, apperr.E(apperr.KindValidation, "appointment date cannot be in the past")
	}

	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	booked, err := s.appts.CountApproved(ctx, doctor.ID, date)
	if err != nil {
		return nil, err
	}
	if booked >= doctor.SlotsPerDay {
		return nil, apperr.Ef(apperr.KindSlotsExhausted,
			"no slots available for %s on %s", doctor.Name, in.Date)
	}

	a := &Appointment{
		PatientID: patientID,
		DoctorID:  doctor.ID,
		Date:      date,
		Time:      in.Time,
		Reason:    strings.TrimSpace(in.Reason),
		Status:    StatusPending,
	}
	if err := s.appts.Create(ctx, a); err != nil {
		return nil, err
	}
	a.DoctorName = doctor.Name

	s.metrics.AppointmentBooked()
	if patient, err := s.users.GetByID(ctx, patientID); err == nil {
		s.notifier.Notify(ctx, notification.TemplateAppointmentBooked, patient.Email, map[string]string{
			"name":   patient.Username,
			"doctor": doctor.Name,
			"date":   in.Date,
		})
	}
	return a, nil
}

// Decide applies an admin approval or rejection. Repeating a decision
// the appointment already carries reports already=true instead of an
// error. Capacity is deliberately not re-checked here: an admin may
// approve past the daily cap, and the availability numbers will show
// zero remaining slots.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, status string) (*Appointment, bool, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, false, apperr.Ef(apperr.KindValidation, "invalid decision %q", status)
	}

	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if a.Status == status {
		return a, true, nil
	}

	if err := s.appts.UpdateStatus(ctx, id, status); err != nil {
		return nil, false, err
	}
	a.Status = status

	s.metrics.AppointmentDecided(status)
	if patient, err := s.users.GetByID(ctx, a.PatientID); err == nil {
		s.notifier.Notify(ctx, notification.TemplateAppointmentDecided, patient.Email, map[string]string{
			"name":   patient.Username,
			"doctor": a.DoctorName,
			"date":   a.Date.Format(DateLayout),
			"status": status,
		})
	}
	return a, false, nil
}

// Availability reports a doctor's slot usage on a day. Booked counts
// approved appointments; over-approval clamps available at zero.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, dateStr string) (Availability, error) {
	date, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return Availability{}, apperr.E(apperr.KindValidation, "invalid date, expected YYYY-MM-DD")
	}
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return Availability{}, err
	}
	booked, err := s.appts.CountApproved(ctx, doctor.ID, date)
	if err != nil {
		return Availability{}, err
	}
	available := doctor.SlotsPerDay - booked
	if available < 0 {
		available = 0
	}
	return Availability{
		AvailableSlots: available,
		TotalSlots:     doctor.SlotsPerDay,
		BookedSlots:    booked,
	}, nil
}

func validateStatusFilter(status string) error {
	if status != "" && !ValidStatus(status) {
		return apperr.Ef(apperr.KindValidation, "invalid status filter %q", status)
	}
	return nil
}

// PatientAppointments lists a patient's bookings, newest day first.
func (s *Service) PatientAppointments(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error) {
	if err := validateStatusFilter(status); err != nil {
		return nil, 0, err
	}
	return s.appts.ListByPatient(ctx, patientID, status, limit, offset)
}

// DoctorAppointments lists a doctor's bookings, newest day first.
func (s *Service) DoctorAppointments(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error) {
	if err := validateStatusFilter(status); err != nil {
		return nil, 0, err
	}
	return s.appts.ListByDoctor(ctx, doctorID, status, limit, offset)
}

// AllAppointments lists every booking for admins, newest submission first.
func (s *Service) AllAppointments(ctx context.Context, status string, limit, offset int) ([]*Appointment, int, error) {
	if err := validateStatusFilter(status); err != nil {
		return nil, 0, err
	}
	return s.appts.ListAll(ctx, status, limit, offset)
}

// PatientDashboard holds a patient's aggregate view.
type PatientDashboard struct {
	Stats  Stats          `json:"stats"`
	Recent []*Appointment `json:"recent"`
}

// DashboardForPatient returns stats plus the five most recent bookings.
func (s *Service) DashboardForPatient(ctx context.Context, patientID uuid.UUID) (*PatientDashboard, error) {
	stats, err := s.appts.Stats(ctx, patientID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	recent, err := s.appts.RecentByPatient(ctx, patientID, RecentLimit)
	if err != nil {
		return nil, err
	}
	return &PatientDashboard{Stats: stats, Recent: recent}, nil
}

// StatsForDoctor returns a doctor's aggregate appointment counts.
func (s *Service) StatsForDoctor(ctx context.Context, doctorID uuid.UUID) (Stats, error) {
	return s.appts.Stats(ctx, uuid.Nil, doctorID)
}

// StatsAll returns system-wide appointment counts.
func (s *Service) StatsAll(ctx context.Context) (Stats, error) {
	return s.appts.Stats(ctx, uuid.Nil, uuid.Nil)
}

// DoctorByUserID resolves the doctor profile behind a session principal.
func (s *Service) DoctorByUserID(ctx context.Context, userID uuid.UUID) (*directory.Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}
