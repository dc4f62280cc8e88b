package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrPasswordNotSet     = errors.New("password has not been set for this account")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa requires an encryption key")
	ErrMFANotConfigured   = errors.New("mfa setup required")
	ErrSessionInvalid     = errors.New("session expired or revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email or employee id already registered")
	ErrResetTokenInvalid  = errors.New("invalid or expired token")
	ErrSignupDisabled     = errors.New("self registration is disabled")
)
