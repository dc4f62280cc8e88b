package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateToken(secret, Claims{UserID: "u1", Role: RoleHR, SessionID: "s1"}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != "u1" || parsed.Role != RoleHR || parsed.SessionID != "s1" {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatal("expected signature failure with wrong secret")
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("expected deterministic hash")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("expected distinct hashes")
	}
}

func TestRequireRoles(t *testing.T) {
	guard := RequireRoles(RoleAdmin, RoleHR)
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleHR, true},
		{RoleManager, false},
		{RoleEmployee, false},
	}
	for _, tc := range tests {
		d := guard(UserContext{UserID: "u", Role: tc.role})
		if d.Allowed != tc.want {
			t.Fatalf("role %s: allowed=%v want %v", tc.role, d.Allowed, tc.want)
		}
		if !d.Allowed && d.Status != http.StatusForbidden {
			t.Fatalf("role %s: expected 403, got %d", tc.role, d.Status)
		}
	}
}

func TestEvaluateStopsAtFirstDenial(t *testing.T) {
	d := Evaluate(UserContext{}, RequireActiveSession(), RequireRoles(RoleAdmin))
	if d.Allowed || d.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 from session guard, got %+v", d)
	}
}

func TestCanAccessOwned(t *testing.T) {
	owner := UserContext{UserID: "e1", Role: RoleEmployee}
	other := UserContext{UserID: "e2", Role: RoleEmployee}
	manager := UserContext{UserID: "m1", Role: RoleManager}
	hr := UserContext{UserID: "h1", Role: RoleHR}

	if !CanAccessOwned(owner, "e1", false) {
		t.Fatal("owner must access own record")
	}
	if CanAccessOwned(other, "e1", true) {
		t.Fatal("another employee must not access the record")
	}
	if CanAccessOwned(manager, "e1", false) {
		t.Fatal("manager excluded when allowManager is false")
	}
	if !CanAccessOwned(manager, "e1", true) {
		t.Fatal("manager allowed when allowManager is true")
	}
	if !CanAccessOwned(hr, "e1", false) {
		t.Fatal("hr must access any record")
	}
}

type fakeStore struct {
	accounts map[string]Account
	sessions map[string]bool
	resets   map[string]string
	lastHash string
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]Account{}, sessions: map[string]bool{}, resets: map[string]string{}}
}

func (f *fakeStore) AccountByEmail(_ context.Context, email string) (Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return Account{}, ErrUserNotFound
}

func (f *fakeStore) AccountByID(_ context.Context, id string) (Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return a, nil
}

func (f *fakeStore) CreateAccount(_ context.Context, in NewAccount) (Account, error) {
	for _, a := range f.accounts {
		if a.Email == in.Email || a.EmployeeID == in.EmployeeID {
			return Account{}, ErrEmailTaken
		}
	}
	a := Account{
		ID: "u" + in.EmployeeID, EmployeeID: in.EmployeeID, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName,
		Role: in.Role, PasswordHash: in.PasswordHash, IsPasswordSet: in.PasswordHash != "", IsActive: true, EmploymentStatus: "active",
	}
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeStore) NextEmployeeID(context.Context) (string, error) {
	return "EMP0042", nil
}

func (f *fakeStore) CreateSession(_ context.Context, userID, tokenHash string, _ time.Time) error {
	f.sessions[userID+":"+tokenHash] = true
	return nil
}

func (f *fakeStore) SessionValid(_ context.Context, userID, tokenHash string) (bool, error) {
	return f.sessions[userID+":"+tokenHash], nil
}

func (f *fakeStore) RevokeSession(_ context.Context, userID, tokenHash string) error {
	f.sessions[userID+":"+tokenHash] = false
	return nil
}

func (f *fakeStore) RevokeSessions(_ context.Context, userID string) error {
	for key := range f.sessions {
		if strings.HasPrefix(key, userID+":") {
			f.sessions[key] = false
		}
	}
	return nil
}

func (f *fakeStore) UpdateLastLogin(context.Context, string) error { return nil }

func (f *fakeStore) UpdatePassword(_ context.Context, userID, hash string) error {
	a, ok := f.accounts[userID]
	if !ok {
		return ErrUserNotFound
	}
	a.PasswordHash = hash
	a.IsPasswordSet = true
	f.accounts[userID] = a
	f.lastHash = hash
	return nil
}

func (f *fakeStore) CreatePasswordReset(_ context.Context, userID, tokenHash string, _ time.Time) error {
	f.resets[tokenHash] = userID
	return nil
}

func (f *fakeStore) ConsumePasswordReset(_ context.Context, tokenHash string) (string, error) {
	userID, ok := f.resets[tokenHash]
	if !ok {
		return "", ErrResetTokenInvalid
	}
	delete(f.resets, tokenHash)
	return userID, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, userID string, in ProfileUpdate) (Account, error) {
	a := f.accounts[userID]
	if in.Phone != nil {
		a.Phone = *in.Phone
	}
	f.accounts[userID] = a
	return a, nil
}

func (f *fakeStore) UpdateMFASecret(context.Context, string, []byte) error { return nil }
func (f *fakeStore) SetMFAEnabled(context.Context, string, bool) error     { return nil }

func seedAccount(t *testing.T, store *fakeStore, a Account, password string) {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a.PasswordHash = hash
	store.accounts[a.ID] = a
}

func TestLoginRejectsDeactivatedRegardlessOfPassword(t *testing.T) {
	store := newFakeStore()
	seedAccount(t, store, Account{ID: "u1", Email: "nurse@example.com", Role: RoleEmployee, IsActive: false, IsPasswordSet: true, EmploymentStatus: "active"}, "Correct123")
	svc := NewService(store, nil, "secret", time.Hour)

	for _, password := range []string{"Correct123", "wrong"} {
		_, err := svc.Login(context.Background(), LoginInput{Email: "nurse@example.com", Password: password})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("password %q: expected ErrAccountDisabled, got %v", password, err)
		}
	}
}

func TestLoginTerminatedEmployeeIsDisabled(t *testing.T) {
	store := newFakeStore()
	seedAccount(t, store, Account{ID: "u1", Email: "x@example.com", IsActive: true, IsPasswordSet: true, EmploymentStatus: "terminated"}, "Correct123")
	svc := NewService(store, nil, "secret", time.Hour)
	if _, err := svc.Login(context.Background(), LoginInput{Email: "x@example.com", Password: "Correct123"}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLoginPasswordNotSet(t *testing.T) {
	store := newFakeStore()
	store.accounts["u1"] = Account{ID: "u1", Email: "new@example.com", IsActive: true, EmploymentStatus: "probation"}
	svc := NewService(store, nil, "secret", time.Hour)
	if _, err := svc.Login(context.Background(), LoginInput{Email: "new@example.com", Password: "anything"}); !errors.Is(err, ErrPasswordNotSet) {
		t.Fatalf("expected ErrPasswordNotSet, got %v", err)
	}
}

func TestLoginAndAuthenticateRoundTrip(t *testing.T) {
	store := newFakeStore()
	seedAccount(t, store, Account{ID: "u1", EmployeeID: "EMP0001", Email: "hr@example.com", Role: RoleHR, IsActive: true, IsPasswordSet: true, EmploymentStatus: "active"}, "Correct123")
	svc := NewService(store, nil, "secret", time.Hour)
	ctx := context.Background()

	if _, err := svc.Login(ctx, LoginInput{Email: "hr@example.com", Password: "bad"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "bad"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	res, err := svc.Login(ctx, LoginInput{Email: "hr@example.com", Password: "Correct123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user, err := svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.UserID != "u1" || user.Role != RoleHR || user.EmployeeID != "EMP0001" {
		t.Fatalf("unexpected user %+v", user)
	}

	if err := svc.Logout(ctx, user); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected revoked session, got %v", err)
	}
}

func TestAuthenticateRejectsDeactivatedUser(t *testing.T) {
	store := newFakeStore()
	seedAccount(t, store, Account{ID: "u1", Email: "a@example.com", Role: RoleEmployee, IsActive: true, IsPasswordSet: true, EmploymentStatus: "active"}, "Correct123")
	svc := NewService(store, nil, "secret", time.Hour)
	ctx := context.Background()
	res, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "Correct123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	a := store.accounts["u1"]
	a.IsActive = false
	store.accounts["u1"] = a
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestRegisterForcesEmployeeRole(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, "secret", time.Hour)
	res, err := svc.Register(context.Background(), RegisterInput{Email: "new@example.com", Password: "Stronger123", FirstName: "Ann", LastName: "Lee"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.Role != RoleEmployee || res.User.EmployeeID != "EMP0042" {
		t.Fatalf("unexpected account %+v", res.User)
	}
	if res.Token == "" {
		t.Fatal("expected token")
	}
}

func TestResetTokenIsSingleUse(t *testing.T) {
	store := newFakeStore()
	seedAccount(t, store, Account{ID: "u1", Email: "a@example.com", IsActive: true, IsPasswordSet: true, EmploymentStatus: "active"}, "Old12345")
	svc := NewService(store, nil, "secret", time.Hour)
	ctx := context.Background()

	token, err := svc.RequestReset(ctx, "a@example.com")
	if err != nil || token == "" {
		t.Fatalf("request reset: %q %v", token, err)
	}
	if err := svc.ResetPassword(ctx, token, "New12345"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := CheckPassword(store.accounts["u1"].PasswordHash, "New12345"); err != nil {
		t.Fatal("expected new password to be stored")
	}
	if err := svc.ResetPassword(ctx, token, "Again1234"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected reuse to fail, got %v", err)
	}

	unknown, err := svc.RequestReset(ctx, "nobody@example.com")
	if err != nil || unknown != "" {
		t.Fatalf("unknown email should be silent, got %q %v", unknown, err)
	}
}

func TestResetPasswordRefusesLockedAccounts(t *testing.T) {
	store := newFakeStore()
	store.accounts["u1"] = Account{ID: "u1", Email: "new@example.com", IsActive: true, EmploymentStatus: "probation"}
	seedAccount(t, store, Account{ID: "u2", Email: "left@example.com", IsActive: true, IsPasswordSet: true, EmploymentStatus: "terminated"}, "Old12345")
	svc := NewService(store, nil, "secret", time.Hour)
	ctx := context.Background()

	for _, email := range []string{"new@example.com", "left@example.com"} {
		if token, err := svc.RequestReset(ctx, email); err != nil || token != "" {
			t.Fatalf("%s: expected no token, got %q %v", email, token, err)
		}
	}
	for _, id := range []string{"u1", "u2"} {
		store.resets[HashToken("t-"+id)] = id
		if err := svc.ResetPassword(ctx, "t-"+id, "New12345"); !errors.Is(err, ErrResetTokenInvalid) {
			t.Fatalf("%s: expected ErrResetTokenInvalid, got %v", id, err)
		}
	}
	if store.accounts["u1"].IsPasswordSet {
		t.Fatal("reset must not assign a first password")
	}
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	store := newFakeStore()
	seedAccount(t, store, Account{ID: "u1", Email: "a@example.com", IsActive: true, IsPasswordSet: true, EmploymentStatus: "active"}, "Old12345")
	svc := NewService(store, nil, "secret", time.Hour)
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "Old12345"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	token, err := svc.RequestReset(ctx, "a@example.com")
	if err != nil || token == "" {
		t.Fatalf("request reset: %q %v", token, err)
	}
	if err := svc.ResetPassword(ctx, token, "New12345"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected old session to be revoked, got %v", err)
	}
}

func TestUpdatePasswordRequiresAssignedPassword(t *testing.T) {
	store := newFakeStore()
	store.accounts["u1"] = Account{ID: "u1", Email: "new@example.com", IsActive: true, EmploymentStatus: "probation"}
	svc := NewService(store, nil, "secret", time.Hour)
	if err := svc.UpdatePassword(context.Background(), "u1", "", "New12345"); !errors.Is(err, ErrPasswordNotSet) {
		t.Fatalf("expected ErrPasswordNotSet, got %v", err)
	}
}

func TestUpdatePasswordChecksCurrent(t *testing.T) {
	store := newFakeStore()
	seedAccount(t, store, Account{ID: "u1", Email: "a@example.com", IsActive: true, IsPasswordSet: true}, "Old12345")
	svc := NewService(store, nil, "secret", time.Hour)
	if err := svc.UpdatePassword(context.Background(), "u1", "wrong", "New12345"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.UpdatePassword(context.Background(), "u1", "Old12345", "New12345"); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestSetupMFARequiresEncryptionKey(t *testing.T) {
	svc := NewService(newFakeStore(), nil, "secret", time.Hour)
	if _, err := svc.SetupMFA(context.Background(), UserContext{UserID: "u1"}); !errors.Is(err, ErrMFAUnavailable) {
		t.Fatalf("expected ErrMFAUnavailable, got %v", err)
	}
}
