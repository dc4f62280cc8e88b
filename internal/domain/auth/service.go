package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	cryptoutil "workpulse/internal/platform/crypto"
)

const (
	defaultResetTTL = 2 * time.Hour
	mfaIssuer       = "WorkPulse"
)

type Service struct {
	Store    StoreAPI
	Crypto   *cryptoutil.Service
	Secret   string
	TokenTTL time.Duration
	ResetTTL time.Duration
	Now      func() time.Time
}

func NewService(store StoreAPI, crypto *cryptoutil.Service, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		Store:    store,
		Crypto:   crypto,
		Secret:   secret,
		TokenTTL: tokenTTL,
		ResetTTL: defaultResetTTL,
		Now:      time.Now,
	}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfaCode"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Account   `json:"user"`
}

type RegisterInput struct {
	EmployeeID  string `json:"employeeId" validate:"omitempty,max=20"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,password"`
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
	Department  string `json:"department" validate:"omitempty,max=100"`
	Designation string `json:"designation" validate:"omitempty,max=100"`
}

func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	account, err := s.Store.AccountByEmail(ctx, in.Email)
	if errors.Is(err, ErrUserNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !account.CanSignIn() {
		return LoginResult{}, ErrAccountDisabled
	}
	if !account.IsPasswordSet || account.PasswordHash == "" {
		return LoginResult{}, ErrPasswordNotSet
	}
	if err := CheckPassword(account.PasswordHash, in.Password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if account.MFAEnabled {
		if strings.TrimSpace(in.MFACode) == "" {
			return LoginResult{}, ErrMFARequired
		}
		secret, err := s.Crypto.Open(cryptoutil.FieldMFASecret, account.MFASecretEnc)
		if err != nil || secret == "" || !totp.Validate(in.MFACode, secret) {
			return LoginResult{}, ErrMFAInvalid
		}
	}
	return s.issue(ctx, account)
}

func (s *Service) issue(ctx context.Context, account Account) (LoginResult, error) {
	sessionID, err := NewOpaqueToken()
	if err != nil {
		return LoginResult{}, err
	}
	expires := s.Now().Add(s.TokenTTL)
	if err := s.Store.CreateSession(ctx, account.ID, HashToken(sessionID), expires); err != nil {
		return LoginResult{}, err
	}
	token, err := GenerateToken(s.Secret, Claims{UserID: account.ID, Role: account.Role, SessionID: sessionID}, s.TokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, account.ID); err != nil {
		slog.Warn("update last_login failed", "userId", account.ID, "err", err)
	}
	return LoginResult{Token: token, ExpiresAt: expires, User: account}, nil
}

// Authenticate resolves a bearer token to the current state of its user. The
// role is read from the database so role changes apply to live sessions.
func (s *Service) Authenticate(ctx context.Context, token string) (UserContext, error) {
	claims, err := ParseToken(s.Secret, token)
	if err != nil {
		return UserContext{}, ErrSessionInvalid
	}
	account, err := s.Store.AccountByID(ctx, claims.UserID)
	if err != nil {
		return UserContext{}, err
	}
	if !account.CanSignIn() {
		return UserContext{}, ErrAccountDisabled
	}
	valid, err := s.Store.SessionValid(ctx, account.ID, HashToken(claims.SessionID))
	if err != nil {
		return UserContext{}, err
	}
	if !valid {
		return UserContext{}, ErrSessionInvalid
	}
	return account.UserContext(claims.SessionID), nil
}

func (s *Service) Logout(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	return s.Store.RevokeSession(ctx, user.UserID, HashToken(user.SessionID))
}

// Register creates a self-service account. The role is always employee.
func (s *Service) Register(ctx context.Context, in RegisterInput) (LoginResult, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return LoginResult{}, err
	}
	employeeID := strings.ToUpper(strings.TrimSpace(in.EmployeeID))
	if employeeID == "" {
		employeeID, err = s.Store.NextEmployeeID(ctx)
		if err != nil {
			return LoginResult{}, err
		}
	}
	account, err := s.Store.CreateAccount(ctx, NewAccount{
		EmployeeID:   employeeID,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        in.Phone,
		Department:   in.Department,
		Designation:  in.Designation,
		Role:         RoleEmployee,
		PasswordHash: hash,
	})
	if err != nil {
		return LoginResult{}, err
	}
	return s.issue(ctx, account)
}

// RequestReset returns the raw reset token, or "" when the email is unknown
// or the account cannot sign in. Callers must not reveal which case occurred.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	account, err := s.Store.AccountByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !account.CanSignIn() || !account.IsPasswordSet {
		return "", nil
	}
	token, err := NewOpaqueToken()
	if err != nil {
		return "", err
	}
	if err := s.Store.CreatePasswordReset(ctx, account.ID, HashToken(token), s.Now().Add(s.ResetTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword redeems a reset token and revokes every session of the
// account. Accounts an admin has not assigned a password to, or that cannot
// sign in, are refused even with a valid token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.Store.ConsumePasswordReset(ctx, HashToken(token))
	if err != nil {
		return err
	}
	account, err := s.Store.AccountByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return err
	}
	if !account.CanSignIn() || !account.IsPasswordSet {
		return ErrResetTokenInvalid
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return s.Store.RevokeSessions(ctx, userID)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, current, next string) error {
	account, err := s.Store.AccountByID(ctx, userID)
	if err != nil {
		return err
	}
	if !account.IsPasswordSet {
		return ErrPasswordNotSet
	}
	if err := CheckPassword(account.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.Store.UpdatePassword(ctx, userID, hash)
}

func (s *Service) Profile(ctx context.Context, userID string) (Account, error) {
	return s.Store.AccountByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (Account, error) {
	return s.Store.UpdateProfile(ctx, userID, in)
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

func (s *Service) SetupMFA(ctx context.Context, user UserContext) (MFASetup, error) {
	if !s.Crypto.Configured() {
		return MFASetup{}, ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, err
	}
	encrypted, err := s.Crypto.Seal(cryptoutil.FieldMFASecret, key.Secret())
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.Store.UpdateMFASecret(ctx, user.UserID, encrypted); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, userID, code string) error {
	if err := s.verifyMFACode(ctx, userID, code); err != nil {
		return err
	}
	return s.Store.SetMFAEnabled(ctx, userID, true)
}

func (s *Service) DisableMFA(ctx context.Context, userID, code string) error {
	if err := s.verifyMFACode(ctx, userID, code); err != nil {
		return err
	}
	return s.Store.SetMFAEnabled(ctx, userID, false)
}

func (s *Service) verifyMFACode(ctx context.Context, userID, code string) error {
	if !s.Crypto.Configured() {
		return ErrMFAUnavailable
	}
	account, err := s.Store.AccountByID(ctx, userID)
	if err != nil {
		return err
	}
	if len(account.MFASecretEnc) == 0 {
		return ErrMFANotConfigured
	}
	secret, err := s.Crypto.Open(cryptoutil.FieldMFASecret, account.MFASecretEnc)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return nil
}
