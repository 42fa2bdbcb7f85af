package models

import (
	"time"

	"github.com/google/uuid"
)

// Purpose of verification token
// Token issued for one purpose never redeemable for another one
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordRestore   Purpose = "password_restore"
)

type VerificationToken struct {
	UserID    uuid.UUID
	Purpose   Purpose
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (t VerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Refresh token. There is at most one per user
type RefreshToken struct {
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issues by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
