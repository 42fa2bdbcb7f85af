package tokenmanager

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/models"
	"github.com/nkiryanov/bazario/internal/service/auth/opaque"
)

// Return the user valid refresh token or replace it with a new one
func (m *TokenManager) GetOrCreateRefresh(ctx context.Context, user models.User) (models.RefreshToken, error) {
	token, err := m.newRefresh(user.ID)
	if err != nil {
		return token, err
	}

	token, err = m.storage.Refresh().GetOrCreate(ctx, token)
	if err != nil {
		return token, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return token, nil
}

// Find token even it expired
// apperrors.ErrRefreshTokenNotFound if not exists
func (m *TokenManager) FindRefresh(ctx context.Context, refresh string) (models.RefreshToken, error) {
	return m.storage.Refresh().Get(ctx, refresh)
}

// Expired token deleted and apperrors.ErrRefreshTokenExpired returned
func (m *TokenManager) VerifyExpiration(ctx context.Context, token models.RefreshToken) error {
	if !token.IsExpired(m.now()) {
		return nil
	}

	if err := m.storage.Refresh().Delete(ctx, token.Token); err != nil {
		return fmt.Errorf("error while deleting expired refresh token. Err: %w", err)
	}

	return apperrors.ErrRefreshTokenExpired
}

// Replace refresh token string and extend expiration
// Only one of concurrent rotations of the same token succeeds, others get apperrors.ErrRefreshTokenNotFound
func (m *TokenManager) RotateRefresh(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rotated, err := m.newRefresh(token.UserID)
	if err != nil {
		return rotated, err
	}

	return m.storage.Refresh().Rotate(ctx, token.Token, rotated)
}

// Idempotent, return count of deleted tokens
func (m *TokenManager) DeleteRefreshByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return m.storage.Refresh().DeleteByUser(ctx, userID)
}

func (m *TokenManager) newRefresh(userID uuid.UUID) (models.RefreshToken, error) {
	value, err := opaque.New()
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("error while generate refresh token. Err: %w", err)
	}

	now := m.currentTime()
	return models.RefreshToken{
		UserID:    userID,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(m.refreshTTL),
	}, nil
}
