package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazario/internal/models"
)

// Storage gives access to all repositories
// Repositories returned from InTx callback share one transaction
type Storage interface {
	User() UserRepo
	Verification() VerificationRepo
	Refresh() RefreshTokenRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          *string
	HashedPassword string
}

// User repository interface
type UserRepo interface {
	// Create not verified user
	// If user with same email or phone exists has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (models.User, error)

	SetVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error

	// Phone taken by other user has to return apperrors.ErrUserAlreadyExists
	UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (models.User, error)
}

// Verification tokens: zero or one pending token per user and purpose
type VerificationRepo interface {
	// Save token replacing any token with same user and purpose
	Save(ctx context.Context, token models.VerificationToken) error

	// Save token only if no pending token exists or existed one expired at token.CreatedAt
	// Otherwise must return apperrors.ErrTooSoon
	IssueIfExpired(ctx context.Context, token models.VerificationToken) error

	// Delete and return the token
	// If not found must return apperrors.ErrVerificationTokenNotFound
	Consume(ctx context.Context, purpose models.Purpose, token string) (models.VerificationToken, error)

	// Delete tokens expired before 'now', return count of deleted
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Return existed not expired token of the user or save the provided one
	// Must be atomic for concurrent calls for the same user
	GetOrCreate(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return token even it expired
	// If not found must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, token string) (models.RefreshToken, error)

	// Replace token string and expiration, return new one
	// If old token not found must return apperrors.ErrRefreshTokenNotFound
	Rotate(ctx context.Context, oldToken string, token models.RefreshToken) (models.RefreshToken, error)

	// Idempotent
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
