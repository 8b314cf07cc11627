package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/devfolio/backend/internal/db"
	apperrors "github.com/devfolio/backend/internal/errors"
)

// fakeUserStore is an in-memory UserStore for service tests.
type fakeUserStore struct {
	users  map[int64]*db.User
	nextID int64
	logins int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*db.User), nextID: 1}
}

func (s *fakeUserStore) Create(ctx context.Context, user *db.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return db.ErrEmailExists
		}
	}
	user.ID = s.nextID
	s.nextID++
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, db.ErrUserNotFound
}

func (s *fakeUserStore) GetByID(ctx context.Context, id int64) (*db.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) Update(ctx context.Context, id int64, update db.UserUpdate) (*db.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	if update.FirstName == nil && update.LastName == nil && update.Bio == nil && update.AvatarURL == nil {
		return nil, db.ErrNoFieldsToUpdate
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.Bio != nil {
		user.Bio.String, user.Bio.Valid = *update.Bio, true
	}
	if update.AvatarURL != nil {
		user.AvatarURL.String, user.AvatarURL.Valid = *update.AvatarURL, true
	}
	return user, nil
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return db.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *fakeUserStore) TouchLogin(ctx context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		return db.ErrUserNotFound
	}
	s.logins++
	return nil
}

func newTestService() (*Service, *fakeUserStore) {
	store := newFakeUserStore()
	tokens := NewTokenService("access-secret", "refresh-secret")
	return NewService(store, testHasher(), tokens), store
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected error code %s, got %s", code, appErr.Code)
	}
}

func TestService_Register(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	info, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if info.ID == 0 {
		t.Error("expected assigned user id")
	}
	if info.Role != db.RoleUser {
		t.Errorf("expected default role user, got %s", info.Role)
	}

	stored := store.users[info.ID]
	if stored.PasswordHash == "secret1" {
		t.Error("password must be stored hashed")
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	_, err := svc.Register(ctx, "a@example.com", "other-pw", "Grace", "Hopper")
	assertAppErrorCode(t, err, apperrors.CodeEmailExists)
}

func TestService_Login(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	resp, err := svc.Login(ctx, "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	if resp.Token == "" || resp.RefreshToken == "" {
		t.Error("expected both tokens in login response")
	}
	if resp.ExpiresIn != int(AccessTokenExpiry.Seconds()) {
		t.Errorf("expected expiresIn %d, got %d", int(AccessTokenExpiry.Seconds()), resp.ExpiresIn)
	}
	if resp.User.Email != "a@example.com" {
		t.Errorf("unexpected user in response: %+v", resp.User)
	}
	if store.logins != 1 {
		t.Errorf("expected login to be recorded once, got %d", store.logins)
	}
}

// A wrong password and an unknown email must be indistinguishable to the
// caller.
func TestService_Login_UniformFailure(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "a@example.com", "wrong")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "secret1")

	assertAppErrorCode(t, wrongPassword, apperrors.CodeInvalidCredentials)
	assertAppErrorCode(t, unknownEmail, apperrors.CodeInvalidCredentials)

	if wrongPassword.Error() != unknownEmail.Error() {
		t.Errorf("failure messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestService_Refresh(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	login, err := svc.Login(ctx, "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	resp, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a fresh access token")
	}
	if resp.User.Email != "a@example.com" {
		t.Errorf("unexpected user in refresh response: %+v", resp.User)
	}
}

func TestService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	login, err := svc.Login(ctx, "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	_, err = svc.Refresh(ctx, login.Token)
	assertAppErrorCode(t, err, apperrors.CodeInvalidToken)
}

func TestService_Refresh_DeletedUser(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	login, err := svc.Login(ctx, "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	delete(store.users, login.User.ID)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assertAppErrorCode(t, err, apperrors.CodeInvalidToken)
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	info, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := svc.ChangePassword(ctx, info.ID, "secret1", "newsecret"); err != nil {
		t.Fatalf("ChangePassword() error: %v", err)
	}

	if _, err := svc.Login(ctx, "a@example.com", "secret1"); err == nil {
		t.Error("old password still accepted after change")
	}
	if _, err := svc.Login(ctx, "a@example.com", "newsecret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestService_ChangePassword_WrongCurrent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	info, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	err = svc.ChangePassword(ctx, info.ID, "not-the-password", "newsecret")
	assertAppErrorCode(t, err, apperrors.CodeInvalidRequest)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	info, err := svc.Register(ctx, "a@example.com", "secret1", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	bio := "First programmer."
	updated, err := svc.UpdateProfile(ctx, info.ID, db.UserUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if updated.Bio != bio {
		t.Errorf("expected bio %q, got %q", bio, updated.Bio)
	}

	if _, err := svc.UpdateProfile(ctx, info.ID, db.UserUpdate{}); err == nil {
		t.Error("expected error for empty update")
	}
}
