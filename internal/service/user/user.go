package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazario/internal/models"
	"github.com/nkiryanov/bazario/internal/repository"
	"github.com/nkiryanov/bazario/internal/service/auth"
)

// Resolves users by login handle and checks their credentials
type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
	}
}

// Find user by email or phone
// apperrors.ErrUserNotFound if there is no such user
func (s *UserService) FindByHandle(ctx context.Context, handle string) (models.User, error) {
	h := models.ParseHandle(handle)

	switch h.Kind {
	case models.HandleEmail:
		return s.storage.User().GetUserByEmail(ctx, h.Value)
	default:
		return s.storage.User().GetUserByPhone(ctx, h.Value)
	}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

// Report whether password matches the user credential hash
func (s *UserService) VerifyCredential(user models.User, password string) bool {
	return s.hasher.Compare(user.HashedPassword, password) == nil
}

func (s *UserService) HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("can't use this as password, Err: %w", err)
	}
	return hash, nil
}

// Change names and phone. Email is never changed here: it would bypass verification
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (models.User, error) {
	user, err := s.storage.User().UpdateProfile(ctx, userID, update)
	if err != nil {
		return user, fmt.Errorf("can't update user profile. Err: %w", err)
	}
	return user, nil
}
