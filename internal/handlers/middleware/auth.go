package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/handlers/render"
	"github.com/nkiryanov/bazario/internal/handlers/userctx"
	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/models"
	"github.com/nkiryanov/bazario/internal/service/auth/tokenmanager"
)

const bearerPrefix = "Bearer "

type authenticator interface {
	Authenticate(ctx context.Context, access string) (models.User, error)
}

// Authenticate resolves user from bearer access token and puts it into request context.
// Never rejects request: without valid token request continues anonymous.
// Use RequireUser on routes that need user.
func Authenticate(a authenticator, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || access == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := a.Authenticate(r.Context(), strings.TrimSpace(access))
			switch {
			case err == nil:
				r = r.WithContext(userctx.New(r.Context(), user))
			case errors.Is(err, apperrors.ErrUserNotFound):
				l.Warn("Access token of unknown user")
			case isAccessError(err):
				l.Debug("Access token rejected", "status", tokenmanager.AccessStatus(err))
			default:
				l.Error("Failed to authenticate request", "error", err)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAccessError(err error) bool {
	return errors.Is(err, apperrors.ErrAccessTokenMalformed) ||
		errors.Is(err, apperrors.ErrAccessTokenExpired) ||
		errors.Is(err, apperrors.ErrAccessTokenUnverifiable)
}

// RequireUser rejects requests without authenticated user
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userctx.FromContext(r.Context()); !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
