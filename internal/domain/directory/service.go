package directory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mediflow/mediflow/internal/domain/identity"
	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/auth"
)

// TxRunner executes fn inside a database transaction; repositories
// participating in the same ctx see the transaction instead of the pool.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	doctors Repository
	users   identity.Repository
	inTx    TxRunner
}

func NewService(doctors Repository, users identity.Repository, inTx TxRunner) *Service {
	return &Service{doctors: doctors, users: users, inTx: inTx}
}

// CreateDoctorInput carries the admin create-doctor form: a login
// account and the profile it owns, created together.
type CreateDoctorInput struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	SlotsPerDay    int    `json:"slots_per_day"`
}

// CreateDoctor creates the doctor's user account and directory profile
// in one transaction. A failure on either write leaves neither behind.
func (s *Service) CreateDoctor(ctx context.Context, in CreateDoctorInput) (*Doctor, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if in.Username == "" || in.Email == "" || in.Password == "" || in.Name == "" || in.Specialization == "" {
		return nil, apperr.E(apperr.KindValidation, "all fields are required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperr.Ef(apperr.KindValidation, "password must be at least %d characters", auth.MinPasswordLength)
	}
	if in.SlotsPerDay < 1 {
		return nil, apperr.E(apperr.KindValidation, "slots_per_day must be at least 1")
	}

	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, apperr.E(apperr.KindConflict, "username already taken")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.E(apperr.KindConflict, "email already registered")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, "hashing password", err)
	}

	var doctor *Doctor
	err = s.inTx(ctx, func(ctx context.Context) error {
		u := &identity.User{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         auth.RoleDoctor,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		doctor = &Doctor{
			UserID:         &u.ID,
			Name:           in.Name,
			Specialization: in.Specialization,
			SlotsPerDay:    in.SlotsPerDay,
		}
		return s.doctors.Create(ctx, doctor)
	})
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

// SetSlots updates a doctor's daily capacity. Pending appointments are
// untouched; the new cap applies to future approvals' availability math.
func (s *Service) SetSlots(ctx context.Context, doctorID uuid.UUID, slots int) (*Doctor, error) {
	if slots < 1 {
		return nil, apperr.E(apperr.KindValidation, "slots_per_day must be at least 1")
	}
	if err := s.doctors.UpdateSlots(ctx, doctorID, slots); err != nil {
		return nil, err
	}
	return s.doctors.GetByID(ctx, doctorID)
}

// GetDoctor returns a doctor profile by id.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// GetByUserID resolves the doctor profile behind a login account.
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

// List returns the doctor directory.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// Count reports the directory size for dashboards.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.doctors.Count(ctx)
}
