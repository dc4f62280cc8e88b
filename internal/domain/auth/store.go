package auth

import (
	"context"
	"strings"
	"time"

	"workpulse/internal/platform/db"
)

type Account struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employeeId"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Phone            string     `json:"phone"`
	Department       string     `json:"department"`
	Designation      string     `json:"designation"`
	Role             string     `json:"role"`
	EmploymentStatus string     `json:"employmentStatus"`
	IsActive         bool       `json:"isActive"`
	IsPasswordSet    bool       `json:"isPasswordSet"`
	MFAEnabled       bool       `json:"mfaEnabled"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	PasswordHash     string     `json:"-"`
	MFASecretEnc     []byte     `json:"-"`
}

// CanSignIn is false for deactivated accounts and for terminated or inactive
// employment, whatever the password.
func (a Account) CanSignIn() bool {
	if !a.IsActive {
		return false
	}
	return a.EmploymentStatus != "inactive" && a.EmploymentStatus != "terminated"
}

func (a Account) UserContext(sessionID string) UserContext {
	return UserContext{
		UserID:     a.ID,
		EmployeeID: a.EmployeeID,
		Email:      a.Email,
		Role:       a.Role,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		SessionID:  sessionID,
	}
}

type NewAccount struct {
	EmployeeID   string
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	Department   string
	Designation  string
	Role         string
	PasswordHash string
}

type ProfileUpdate struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=30"`
}

type StoreAPI interface {
	AccountByEmail(ctx context.Context, email string) (Account, error)
	AccountByID(ctx context.Context, id string) (Account, error)
	CreateAccount(ctx context.Context, in NewAccount) (Account, error)
	NextEmployeeID(ctx context.Context) (string, error)
	CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error
	SessionValid(ctx context.Context, userID, tokenHash string) (bool, error)
	RevokeSession(ctx context.Context, userID, tokenHash string) error
	RevokeSessions(ctx context.Context, userID string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, hash string) error
	CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (Account, error)
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
}

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

const accountColumns = `id, employee_id, email, first_name, last_name, phone, department, designation,
  role, employment_status, is_active, is_password_set, mfa_enabled, last_login, password_hash, mfa_secret_enc`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.EmployeeID, &a.Email, &a.FirstName, &a.LastName, &a.Phone, &a.Department, &a.Designation,
		&a.Role, &a.EmploymentStatus, &a.IsActive, &a.IsPasswordSet, &a.MFAEnabled, &a.LastLogin, &a.PasswordHash, &a.MFASecretEnc)
	if db.IsNoRows(err) {
		return Account{}, ErrUserNotFound
	}
	return a, err
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (Account, error) {
	return scanAccount(s.DB.QueryRow(ctx, "SELECT "+accountColumns+" FROM users WHERE lower(email) = lower($1)", strings.TrimSpace(email)))
}

func (s *Store) AccountByID(ctx context.Context, id string) (Account, error) {
	return scanAccount(s.DB.QueryRow(ctx, "SELECT "+accountColumns+" FROM users WHERE id = $1", id))
}

func (s *Store) CreateAccount(ctx context.Context, in NewAccount) (Account, error) {
	a, err := scanAccount(s.DB.QueryRow(ctx, `
    INSERT INTO users (employee_id, email, first_name, last_name, phone, department, designation, role, password_hash, is_password_set)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING `+accountColumns,
		in.EmployeeID, strings.ToLower(strings.TrimSpace(in.Email)), in.FirstName, in.LastName, in.Phone, in.Department, in.Designation,
		in.Role, in.PasswordHash, in.PasswordHash != ""))
	if db.IsUniqueViolation(err) {
		return Account{}, ErrEmailTaken
	}
	return a, err
}

func (s *Store) NextEmployeeID(ctx context.Context) (string, error) {
	return db.NextEmployeeCode(ctx, s.DB)
}

func (s *Store) CreateSession(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, token_hash, expires_at)
    VALUES ($1,$2,$3)
  `, userID, tokenHash, expires)
	return err
}

func (s *Store) SessionValid(ctx context.Context, userID, tokenHash string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE user_id = $1 AND token_hash = $2 AND expires_at > now() AND revoked_at IS NULL
  `, userID, tokenHash).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RevokeSession(ctx context.Context, userID, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND token_hash = $2 AND revoked_at IS NULL", userID, tokenHash)
	return err
}

func (s *Store) RevokeSessions(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1, is_password_set = true, updated_at = now() WHERE id = $2", hash, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, "INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES ($1, $2, $3)", userID, tokenHash, expires)
	return err
}

// ConsumePasswordReset marks the token used and returns its user in one
// statement, so a token can be redeemed once.
func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    UPDATE password_resets
    SET used_at = now()
    WHERE token_hash = $1 AND expires_at > now() AND used_at IS NULL
    RETURNING user_id
  `, tokenHash).Scan(&userID)
	if db.IsNoRows(err) {
		return "", ErrResetTokenInvalid
	}
	return userID, err
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (Account, error) {
	return scanAccount(s.DB.QueryRow(ctx, `
    UPDATE users SET
      first_name = COALESCE($2, first_name),
      last_name = COALESCE($3, last_name),
      phone = COALESCE($4, phone),
      updated_at = now()
    WHERE id = $1
    RETURNING `+accountColumns, userID, in.FirstName, in.LastName, in.Phone))
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2", secretEnc, userID)
	return err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}
