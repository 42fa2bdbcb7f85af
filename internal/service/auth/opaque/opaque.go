// Package opaque issues random URL safe tokens with no embedded structure.
// Used for verification tokens and refresh tokens.
package opaque

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazario/internal/models"
)

// 256 bits of entropy
const tokenBytesLen = 32

// Return new random token encoded as base64 url without padding
func New() (string, error) {
	b := make([]byte, tokenBytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while reading random bytes. Err: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type Generator struct {
	now func() time.Time
}

// Generator with custom clock, time.Now used if nil
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Issue verification token for the user that expires after ttl
func (g *Generator) Issue(userID uuid.UUID, purpose models.Purpose, ttl time.Duration) (models.VerificationToken, error) {
	value, err := New()
	if err != nil {
		return models.VerificationToken{}, err
	}

	now := g.now()
	return models.VerificationToken{
		UserID:    userID,
		Purpose:   purpose,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
