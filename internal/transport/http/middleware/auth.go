package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"workpulse/internal/domain/auth"
	"workpulse/internal/platform/requestctx"
	"workpulse/internal/transport/http/api"
)

// TokenCookie is the cookie the dashboard stores the access token in.
const TokenCookie = "token"

// Authenticator resolves an access token to the current user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.UserContext, error)
}

// TokenFromRequest reads a bearer token, falling back to the token cookie.
func TokenFromRequest(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// Authenticate loads the caller and rejects the request with 401 when the
// token is missing, invalid, revoked, or belongs to a deactivated account.
func Authenticate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			token := TokenFromRequest(r)
			if token == "" {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}
			user, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrAccountDisabled):
					api.Fail(w, http.StatusUnauthorized, "account_disabled", "account is deactivated", reqID)
				case errors.Is(err, auth.ErrSessionInvalid), errors.Is(err, auth.ErrUserNotFound):
					api.Fail(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token", reqID)
				default:
					slog.Error("authenticate failed", "err", err, "requestId", reqID)
					api.Fail(w, http.StatusInternalServerError, "auth_failed", "authentication failed", reqID)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	ctx = requestctx.WithActorID(ctx, user.UserID)
	return context.WithValue(ctx, ctxKeyUser, user)
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
