package authhandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"workpulse/internal/domain/audit"
	"workpulse/internal/domain/auth"
	"workpulse/internal/transport/http/api"
	"workpulse/internal/transport/http/middleware"
	"workpulse/internal/transport/http/shared"
)

type Handler struct {
	Service      *auth.Service
	Audit        *audit.Service
	AllowSignup  bool
	SecureCookie bool
	// LogResetTokens writes issued reset tokens to the debug log. Tokens are
	// never part of a response.
	LogResetTokens bool
}

func NewHandler(service *auth.Service, auditSvc *audit.Service, allowSignup, production bool) *Handler {
	return &Handler{
		Service:      service,
		Audit:        auditSvc,
		AllowSignup:  allowSignup,
		SecureCookie: production,
	}
}

// RegisterRoutes mounts the public endpoints and, behind authn, the account
// endpoints.
func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/request-reset", h.handleRequestReset)
		r.Post("/reset", h.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleProfile)
			r.Put("/profile", h.handleUpdateProfile)
			r.Put("/password", h.handleUpdatePassword)
			r.Post("/mfa/setup", h.handleMFASetup)
			r.Post("/mfa/enable", h.handleMFAEnable)
			r.Post("/mfa/disable", h.handleMFADisable)
		})
	})
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (h *Handler) fail(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
	case errors.Is(err, auth.ErrAccountDisabled):
		api.Fail(w, http.StatusUnauthorized, "account_disabled", "account is deactivated", reqID)
	case errors.Is(err, auth.ErrPasswordNotSet):
		api.Fail(w, http.StatusUnauthorized, "password_not_set", "password has not been set, contact an administrator", reqID)
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", reqID)
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", reqID)
	case errors.Is(err, auth.ErrMFANotConfigured):
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", reqID)
	case errors.Is(err, auth.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "user_exists", "email or employee id already registered", reqID)
	case errors.Is(err, auth.ErrResetTokenInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_token", "invalid or expired token", reqID)
	case errors.Is(err, auth.ErrUserNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
	default:
		slog.Error("auth request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "auth_failed", "request failed", reqID)
	}
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if !h.AllowSignup {
		api.Fail(w, http.StatusForbidden, "signup_disabled", auth.ErrSignupDisabled.Error(), reqID)
		return
	}
	var payload auth.RegisterInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.Register(r.Context(), payload)
	if err != nil {
		h.fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), result.User.ID, "auth.register", "user", result.User.ID, reqID, shared.ClientIP(r), nil, result.User); err != nil {
		slog.Warn("audit auth.register failed", "err", err)
	}
	h.setTokenCookie(w, result.Token, result.ExpiresAt)
	api.Created(w, result, reqID)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload auth.LoginInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload)
	if err != nil {
		h.fail(w, err, reqID)
		return
	}
	h.setTokenCookie(w, result.Token, result.ExpiresAt)
	api.Success(w, result, reqID)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if user, ok := middleware.GetUser(r.Context()); ok {
		if err := h.Service.Logout(r.Context(), user); err != nil {
			slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
		}
	}
	h.clearTokenCookie(w)
	api.SuccessMessage(w, nil, "logged out", reqID)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	account, err := h.Service.Profile(r.Context(), user.UserID)
	if err != nil {
		h.fail(w, err, reqID)
		return
	}
	api.Success(w, account, reqID)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload auth.ProfileUpdate
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	account, err := h.Service.UpdateProfile(r.Context(), user.UserID, payload)
	if err != nil {
		h.fail(w, err, reqID)
		return
	}
	api.SuccessMessage(w, account, "profile updated", reqID)
}

func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload updatePasswordRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	if err := h.Service.UpdatePassword(r.Context(), user.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			api.Fail(w, http.StatusBadRequest, "invalid_password", "current password is incorrect", reqID)
			return
		}
		h.fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "auth.password.update", "user", user.UserID, reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit auth.password.update failed", "err", err)
	}
	api.SuccessMessage(w, nil, "password updated", reqID)
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	setup, err := h.Service.SetupMFA(r.Context(), user)
	if err != nil {
		h.fail(w, err, reqID)
		return
	}
	api.Success(w, setup, reqID)
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enable bool) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload mfaCodeRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	action, status := "auth.mfa.disable", "disabled"
	var err error
	if enable {
		action, status = "auth.mfa.enable", "enabled"
		err = h.Service.EnableMFA(r.Context(), user.UserID, payload.Code)
	} else {
		err = h.Service.DisableMFA(r.Context(), user.UserID, payload.Code)
	}
	if errors.Is(err, auth.ErrMFAInvalid) {
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", reqID)
		return
	}
	if err != nil {
		h.fail(w, err, reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, "user", user.UserID, reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
	api.Success(w, map[string]string{"status": status}, reqID)
}

// handleRequestReset answers identically for every email.
func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload resetRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	token, err := h.Service.RequestReset(r.Context(), payload.Email)
	if err != nil {
		slog.Warn("password reset request failed", "err", err, "requestId", reqID)
	}
	if h.LogResetTokens && token != "" {
		slog.Debug("password reset token issued", "email", payload.Email, "token", token, "requestId", reqID)
	}
	api.Success(w, map[string]string{"status": "reset_requested"}, reqID)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload resetPasswordRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	if err := h.Service.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		h.fail(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"status": "password_reset"}, reqID)
}
