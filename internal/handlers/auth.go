package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/handlers/render"
	"github.com/nkiryanov/bazario/internal/handlers/userctx"
	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/models"
	"github.com/nkiryanov/bazario/internal/service/auth"
)

// Same message for all failures of token redemption and mail requests
const (
	invalidTokenMessage = "Token is invalid or expired"
	cantSendMessage     = "Can't send email to this user now"
)

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // Access token lifetime in seconds
}

func newTokenResponse(pair models.TokenPair, now time.Time) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.Access.ExpiresAt.Sub(now).Seconds()),
	}
}

func handleRegister(as authService, l logger.Logger) http.Handler {
	type request struct {
		FirstName string  `json:"first_name" validate:"required,max=50"`
		LastName  string  `json:"last_name" validate:"required,max=50"`
		Email     string  `json:"email" validate:"required,email"`
		Phone     *string `json:"phone" validate:"omitempty,phone"`
		Password  string  `json:"password" validate:"required,min=8,max=72"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := as.Register(r.Context(), auth.RegisterParams{
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Email:     data.Email,
			Phone:     data.Phone,
			Password:  data.Password,
		})
		switch {
		case err == nil:
			render.JSONCreated(w, newUserResponse(user))
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			internalError(w, l, "Failed to register user", err)
		}
	})
}

func handleLogin(as authService, l logger.Logger, now func() time.Time) http.Handler {
	type request struct {
		Handle   string `json:"handle" validate:"required,emailorphone"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := as.Login(r.Context(), data.Handle, data.Password)
		switch {
		case err == nil:
			render.JSON(w, newTokenResponse(pair, now()))
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrUserNotVerified):
			render.ServiceError(w, "Email is not verified", http.StatusForbidden)
		default:
			internalError(w, l, "Failed to login user", err)
		}
	})
}

func handleRefresh(as authService, l logger.Logger, now func() time.Time) http.Handler {
	type request struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := as.Refresh(r.Context(), data.RefreshToken)
		switch {
		case err == nil:
			render.JSON(w, newTokenResponse(pair, now()))
		case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
			errors.Is(err, apperrors.ErrRefreshTokenExpired),
			errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		default:
			internalError(w, l, "Failed to refresh tokens", err)
		}
	})
}

func handleLogout(as authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := as.Logout(r.Context(), user); err != nil {
			internalError(w, l, "Failed to logout user", err)
			return
		}
		render.JSON(w, messageResponse{Message: "Logged out"})
	})
}

func handleVerifyEmail(as authService, l logger.Logger) http.Handler {
	type request struct {
		Token string `json:"token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = as.VerifyEmail(r.Context(), data.Token)
		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: "Email verified"})
		case isVerificationFlowError(err):
			render.ServiceError(w, invalidTokenMessage, http.StatusBadRequest)
		default:
			internalError(w, l, "Failed to verify email", err)
		}
	})
}

func handleSendVerifyEmail(as authService, l logger.Logger) http.Handler {
	type request struct {
		Handle string `json:"handle" validate:"required,emailorphone"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = as.SendVerifyEmail(r.Context(), data.Handle)
		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: "Verification email sent"})
		case isVerificationFlowError(err):
			render.ServiceError(w, cantSendMessage, http.StatusBadRequest)
		default:
			internalError(w, l, "Failed to send verification email", err)
		}
	})
}

func handleRestorePassword(as authService, l logger.Logger) http.Handler {
	type request struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = as.RestorePassword(r.Context(), data.Token, data.Password)
		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: "Password changed"})
		case isVerificationFlowError(err):
			render.ServiceError(w, invalidTokenMessage, http.StatusBadRequest)
		default:
			internalError(w, l, "Failed to restore password", err)
		}
	})
}

func handleSendRestorePassword(as authService, l logger.Logger) http.Handler {
	type request struct {
		Handle string `json:"handle" validate:"required,emailorphone"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = as.SendRestorePassword(r.Context(), data.Handle)
		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: "Password restore email sent"})
		case isVerificationFlowError(err):
			render.ServiceError(w, cantSendMessage, http.StatusBadRequest)
		default:
			internalError(w, l, "Failed to send password restore email", err)
		}
	})
}

func isVerificationFlowError(err error) bool {
	for _, target := range []error{
		apperrors.ErrUserNotFound,
		apperrors.ErrUserNotVerified,
		apperrors.ErrUserAlreadyVerified,
		apperrors.ErrVerificationTokenNotFound,
		apperrors.ErrVerificationTokenExpired,
		apperrors.ErrTooSoon,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func internalError(w http.ResponseWriter, l logger.Logger, msg string, err error) {
	l.Error(msg, "error", err)
	render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
}
