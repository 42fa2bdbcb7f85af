package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserNotVerified     = errors.New("user is not verified")
	ErrUserAlreadyVerified = errors.New("user already verified")
	ErrInvalidCredentials  = errors.New("invalid credentials")

	ErrVerificationTokenNotFound = errors.New("verification token not found")
	ErrVerificationTokenExpired  = errors.New("verification token is expired")
	ErrTooSoon                   = errors.New("previous verification token is still valid")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrAccessTokenExpired      = errors.New("access token is expired")
	ErrAccessTokenMalformed    = errors.New("access token is malformed")
	ErrAccessTokenUnverifiable = errors.New("access token signature could not be verified")
)
