package identity

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow/mediflow/internal/platform/apperr"
	"github.com/mediflow/mediflow/internal/platform/auth"
)

// mockRepo is an in-memory Repository for service tests.
type mockRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User

	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperr.E(apperr.KindConflict, "username or email already taken")
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperr.E(apperr.KindNotFound, "user not found")
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.E(apperr.KindNotFound, "user not found")
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.E(apperr.KindNotFound, "user not found")
}

func (m *mockRepo) UpdateProfile(_ context.Context, id uuid.UUID, email string, dob *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.E(apperr.KindNotFound, "user not found")
	}
	u.Email = email
	u.DateOfBirth = dob
	return nil
}

func (m *mockRepo) ListByRole(_ context.Context, role string, limit, offset int) ([]*User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*User
	for _, u := range m.users {
		if u.Role == role {
			cp := *u
			all = append(all, &cp)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) CountByRole(_ context.Context, role string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// mockNotifier records notifications without delivering anything.
type mockNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockNotifier) Notify(_ context.Context, templateID, recipient string, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, templateID+"->"+recipient)
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestService() (*Service, *mockRepo, *mockNotifier) {
	repo := newMockRepo()
	n := &mockNotifier{}
	svc := NewService(repo, auth.NewTokenIssuer("test-secret", time.Hour), n)
	return svc, repo, n
}

func validRegister() RegisterInput {
	return RegisterInput{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		DateOfBirth:     "1990-04-15",
	}
}

func TestRegister_Success(t *testing.T) {
	svc, _, notifier := newTestService()

	u, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if u.Role != auth.RolePatient {
		t.Errorf("expected role patient, got %s", u.Role)
	}
	if u.DateOfBirth == nil || u.DateOfBirth.Format(DateLayout) != "1990-04-15" {
		t.Errorf("unexpected date of birth: %v", u.DateOfBirth)
	}
	if notifier.count() != 1 {
		t.Errorf("expected 1 welcome notification, got %d", notifier.count())
	}
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	svc, repo, _ := newTestService()

	u, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if stored.PasswordHash == "secret1" {
		t.Fatal("password stored in plaintext")
	}
	if !auth.VerifyPassword(stored.PasswordHash, "secret1") {
		t.Error("stored hash does not verify against original password")
	}
	if auth.VerifyPassword(stored.PasswordHash, "wrong") {
		t.Error("stored hash verifies against a wrong password")
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"missing username", func(in *RegisterInput) { in.Username = "" }},
		{"missing email", func(in *RegisterInput) { in.Email = "" }},
		{"missing password", func(in *RegisterInput) { in.Password = "" }},
		{"missing confirmation", func(in *RegisterInput) { in.ConfirmPassword = "" }},
		{"missing date of birth", func(in *RegisterInput) { in.DateOfBirth = "" }},
		{"password mismatch", func(in *RegisterInput) { in.ConfirmPassword = "different" }},
		{"password too short", func(in *RegisterInput) { in.Password = "abc"; in.ConfirmPassword = "abc" }},
		{"unparsable date", func(in *RegisterInput) { in.DateOfBirth = "15/04/1990" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()
			in := validRegister()
			tt.mutate(&in)

			if _, err := svc.Register(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if len(repo.users) != 0 {
				t.Error("expected nothing persisted on validation failure")
			}
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatalf("seed register error: %v", err)
	}

	dup := validRegister()
	dup.Email = "other@example.com"
	if _, err := svc.Register(context.Background(), dup); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict for duplicate username, got %v", err)
	}

	dup = validRegister()
	dup.Username = "other"
	if _, err := svc.Register(context.Background(), dup); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict for duplicate email, got %v", err)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatalf("seed register error: %v", err)
	}

	u, token, err := svc.Authenticate(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	p, err := auth.NewTokenIssuer("test-secret", time.Hour).Parse(token)
	if err != nil {
		t.Fatalf("token does not parse: %v", err)
	}
	if p.UserID != u.ID.String() || p.Username != "alice" || p.Role != auth.RolePatient {
		t.Errorf("unexpected principal: %+v", p)
	}
}

func TestAuthenticate_SameErrorForUnknownUserAndWrongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatalf("seed register error: %v", err)
	}

	_, _, errUnknown := svc.Authenticate(context.Background(), "nobody", "secret1")
	_, _, errWrong := svc.Authenticate(context.Background(), "alice", "wrongpass")

	if !apperr.Is(errUnknown, apperr.KindInvalidCredentials) {
		t.Fatalf("unknown user: expected invalid credentials, got %v", errUnknown)
	}
	if !apperr.Is(errWrong, apperr.KindInvalidCredentials) {
		t.Fatalf("wrong password: expected invalid credentials, got %v", errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("error messages differ, account existence is leaking: %q vs %q",
			errUnknown.Error(), errWrong.Error())
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _, _ := newTestService()
	alice, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatalf("seed register error: %v", err)
	}
	bobIn := validRegister()
	bobIn.Username = "bob"
	bobIn.Email = "bob@example.com"
	if _, err := svc.Register(context.Background(), bobIn); err != nil {
		t.Fatalf("seed register error: %v", err)
	}

	// Taking another user's email conflicts.
	_, err = svc.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{Email: "bob@example.com"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	// Keeping your own email is fine.
	u, err := svc.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{
		Email:       "alice@example.com",
		DateOfBirth: "1991-01-01",
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if u.DateOfBirth == nil || u.DateOfBirth.Format(DateLayout) != "1991-01-01" {
		t.Errorf("unexpected date of birth: %v", u.DateOfBirth)
	}

	// Bad date is a validation error.
	_, err = svc.UpdateProfile(context.Background(), alice.ID, UpdateProfileInput{
		Email:       "alice@example.com",
		DateOfBirth: "bogus",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestForgotPassword_DoesNotLeakAccounts(t *testing.T) {
	svc, _, notifier := newTestService()
	if _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatalf("seed register error: %v", err)
	}
	before := notifier.count()

	// Unknown email: no error, no mail.
	svc.ForgotPassword(context.Background(), "ghost@example.com")
	if notifier.count() != before {
		t.Error("expected no notification for unknown email")
	}

	// Known email: reset notification goes out.
	svc.ForgotPassword(context.Background(), "alice@example.com")
	if notifier.count() != before+1 {
		t.Error("expected a reset notification for known email")
	}
}

func TestListPatients_OnlyPatients(t *testing.T) {
	svc, repo, _ := newTestService()
	if _, err := svc.Register(context.Background(), validRegister()); err != nil {
		t.Fatalf("seed register error: %v", err)
	}
	repo.users[uuid.New()] = &User{ID: uuid.New(), Username: "drwho", Email: "drwho@example.com", Role: auth.RoleDoctor}

	patients, total, err := svc.ListPatients(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("ListPatients() error: %v", err)
	}
	if total != 1 || len(patients) != 1 {
		t.Fatalf("expected exactly 1 patient, got total=%d len=%d", total, len(patients))
	}
	if !strings.EqualFold(patients[0].Username, "alice") {
		t.Errorf("unexpected patient: %s", patients[0].Username)
	}
}
