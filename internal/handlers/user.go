package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/handlers/render"
	"github.com/nkiryanov/bazario/internal/handlers/userctx"
	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/models"
)

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone"`
	Verified  bool      `json:"verified"`
	Role      string    `json:"role"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Verified:  u.Verified,
		Role:      u.Role,
	}
}

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.JSON(w, newUserResponse(user))
	})
}

func handleUpdateUser(us userService, l logger.Logger) http.Handler {
	type request struct {
		FirstName string  `json:"first_name" validate:"required,max=50"`
		LastName  string  `json:"last_name" validate:"required,max=50"`
		Phone     *string `json:"phone" validate:"omitempty,phone"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		updated, err := us.UpdateProfile(r.Context(), user.ID, models.ProfileUpdate{
			FirstName: data.FirstName,
			LastName:  data.LastName,
			Phone:     data.Phone,
		})
		switch {
		case err == nil:
			render.JSON(w, newUserResponse(updated))
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Phone is already taken", http.StatusConflict)
		default:
			internalError(w, l, "Failed to update user", err)
		}
	})
}
