package records

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/mediflow/internal/domain/directory"
	"github.com/mediflow/mediflow/internal/domain/identity"
	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/auth"
)

// DateLayout is the wire format for the visit date.
const DateLayout = "2006-01-02"

type Service struct {
	records Repository
	doctors directory.Repository
	users   identity.Repository
}

func NewService(records Repository, doctors directory.Repository, users identity.Repository) *Service {
	return &Service{records: records, doctors: doctors, users: users}
}

// AddInput carries the new-record form.
type AddInput struct {
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	VisitDate    string `json:"visit_date"`
	Notes        string `json:"notes"`
}

// Add appends a record for a visit. The patient must exist and hold the
// patient role; the doctor must have a directory profile.
func (s *Service) Add(ctx context.Context, patientID, doctorID uuid.UUID, in AddInput) (*MedicalRecord, error) {
	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
	if in.Diagnosis == "" || in.VisitDate == "" {
		return nil, apperr.E(apperr.KindValidation, "diagnosis and visit date are required")
	}
	visitDate, err := time.Parse(DateLayout, in.VisitDate)
	if err != nil {
		return nil, apperr.E(apperr.KindValidation, "invalid visit date, expected YYYY-MM-DD")
	}

	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient.Role != auth.RolePatient {
		return nil, apperr.E(apperr.KindNotFound, "patient not found")
	}
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	m := &MedicalRecord{
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		Diagnosis: in.Diagnosis,
		VisitDate: visitDate,
	}
	if p := strings.TrimSpace(in.Prescription); p != "" {
		m.Prescription = &p
	}
	if n := strings.TrimSpace(in.Notes); n != "" {
		m.Notes = &n
	}
	if err := s.records.Create(ctx, m); err != nil {
		return nil, err
	}
	m.DoctorName = doctor.Name
	m.PatientUsername = patient.Username
	return m, nil
}

// ForPatient returns a patient's cross-doctor history, latest visit first.
func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

// HistoryOf is the clinician view of another patient's history. It
// reports NotFound for ids that do not belong to a patient.
func (s *Service) HistoryOf(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if patient.Role != auth.RolePatient {
		return nil, 0, apperr.E(apperr.KindNotFound, "patient not found")
	}
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

// GroupedForDoctor buckets the doctor's own records per patient, patients
// sorted by username and each bucket's visits newest first.
func (s *Service) GroupedForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*PatientGroup, error) {
	items, err := s.records.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	groups := []*PatientGroup{}
	byPatient := map[uuid.UUID]*PatientGroup{}
	for _, m := range items {
		g, ok := byPatient[m.PatientID]
		if !ok {
			g = &PatientGroup{PatientID: m.PatientID, Username: m.PatientUsername}
			byPatient[m.PatientID] = g
			groups = append(groups, g)
		}
		g.Records = append(g.Records, m)
	}
	return groups, nil
}

// DoctorByUserID resolves the doctor profile behind a session principal.
func (s *Service) DoctorByUserID(ctx context.Context, userID uuid.UUID) (*directory.Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}
