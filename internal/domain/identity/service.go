package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/auth"
	"github.com/mediflow/mediflow/internal/platform/notification"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

type notifier interface {
	Notify(ctx context.Context, templateID, recipient string, data map[string]string)
}

type Service struct {
	users    Repository
	tokens   *auth.TokenIssuer
	notifier notifier
}

func NewService(users Repository, tokens *auth.TokenIssuer, n notifier) *Service {
	return &Service{users: users, tokens: tokens, notifier: n}
}

// RegisterInput carries the self-service signup form.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DateOfBirth     string `json:"date_of_birth"`
}

// Register creates a patient account. All fields are required; the
// password must match its confirmation and be at least six characters.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" || in.DateOfBirth == "" {
		return nil, apperr.E(apperr.KindValidation, "all fields are required")
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperr.E(apperr.KindValidation, "passwords do not match")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperr.Ef(apperr.KindValidation, "password must be at least %d characters", auth.MinPasswordLength)
	}
	dob, err := time.Parse(DateLayout, in.DateOfBirth)
	if err != nil {
		return nil, apperr.E(apperr.KindValidation, "invalid date of birth, expected YYYY-MM-DD")
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

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         auth.RolePatient,
		DateOfBirth:  &dob,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notification.TemplateWelcome, u.Email, map[string]string{
		"name": u.Username,
	})
	return u, nil
}

// Authenticate verifies credentials and issues a session token. Unknown
// usernames and wrong passwords report the same error so the endpoint
// does not reveal which accounts exist.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, string, error) {
	if username == "" || password == "" {
		return nil, "", apperr.E(apperr.KindValidation, "username and password are required")
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, "", apperr.E(apperr.KindInvalidCredentials, "invalid username or password")
		}
		return nil, "", err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return nil, "", apperr.E(apperr.KindInvalidCredentials, "invalid username or password")
	}

	token, err := s.tokens.Issue(auth.Principal{
		UserID:   u.ID.String(),
		Username: u.Username,
		Role:     u.Role,
	})
	if err != nil {
		return nil, "", err
	}

	s.notifier.Notify(ctx, notification.TemplateLoginAlert, u.Email, map[string]string{
		"name": u.Username,
		"time": time.Now().Format(time.RFC1123),
	})
	return u, token, nil
}

// UpdateProfileInput carries the patient profile form.
type UpdateProfileInput struct {
	Email       string `json:"email"`
	DateOfBirth string `json:"date_of_birth"`
}

// UpdateProfile changes a user's email and date of birth. The email must
// not belong to another account.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return nil, apperr.E(apperr.KindValidation, "email is required")
	}

	var dob *time.Time
	if in.DateOfBirth != "" {
		d, err := time.Parse(DateLayout, in.DateOfBirth)
		if err != nil {
			return nil, apperr.E(apperr.KindValidation, "invalid date of birth, expected YYYY-MM-DD")
		}
		dob = &d
	}

	if other, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		if other.ID != userID {
			return nil, apperr.E(apperr.KindConflict, "email already taken")
		}
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	if err := s.users.UpdateProfile(ctx, userID, in.Email, dob); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// ForgotPassword always reports the same generic outcome so the endpoint
// cannot be used to probe which emails are registered. When the account
// exists a reset notification is sent.
func (s *Service) ForgotPassword(ctx context.Context, email string) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return
	}
	s.notifier.Notify(ctx, notification.TemplatePasswordReset, u.Email, map[string]string{
		"reset_link": "/auth/reset-password",
	})
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// ListPatients returns registered patients for the admin view.
func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.ListByRole(ctx, auth.RolePatient, limit, offset)
}

// CountByRole reports how many users hold the given role.
func (s *Service) CountByRole(ctx context.Context, role string) (int, error) {
	return s.users.CountByRole(ctx, role)
}
