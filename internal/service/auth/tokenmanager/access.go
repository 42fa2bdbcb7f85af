package tokenmanager

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/models"
)

// Access token validation results
const (
	AccessValid        = "valid"
	AccessExpired      = "expired"
	AccessMalformed    = "malformed"
	AccessUnverifiable = "unverifiable"
)

// Issue signed access token. Subject is the user login handle
func (m *TokenManager) IssueAccess(subject string) (models.IssuedToken, error) {
	now := m.currentTime()
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(m.alg, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	value, err := token.SignedString(m.key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

// Parse and validate access token, return its subject
// Error is one of apperrors.ErrAccessTokenExpired, ErrAccessTokenUnverifiable, ErrAccessTokenMalformed
func (m *TokenManager) ParseAccess(access string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) {
			return m.key, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	switch {
	case err == nil && claims.Subject != "":
		return claims.Subject, nil
	case err == nil:
		return "", fmt.Errorf("token has no subject: %w", apperrors.ErrAccessTokenMalformed)
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("%w: %w", apperrors.ErrAccessTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "", fmt.Errorf("%w: %w", apperrors.ErrAccessTokenUnverifiable, err)
	default:
		return "", fmt.Errorf("%w: %w", apperrors.ErrAccessTokenMalformed, err)
	}
}

// Classify ParseAccess error for logs and metrics
func AccessStatus(err error) string {
	switch {
	case err == nil:
		return AccessValid
	case errors.Is(err, apperrors.ErrAccessTokenExpired):
		return AccessExpired
	case errors.Is(err, apperrors.ErrAccessTokenUnverifiable):
		return AccessUnverifiable
	default:
		return AccessMalformed
	}
}
