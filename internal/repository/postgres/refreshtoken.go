package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const refreshColumns = `user_id, token, created_at, expires_at`

// Replace the user token only if it expired; no row returned when it still valid
const upsertRefreshIfExpired = `-- name: UpsertRefreshTokenIfExpired
INSERT INTO refresh_tokens (user_id, token, created_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET token = EXCLUDED.token, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
WHERE refresh_tokens.expires_at <= EXCLUDED.created_at
RETURNING ` + refreshColumns

const getRefreshByUser = `-- name: GetRefreshTokenByUser
SELECT ` + refreshColumns + ` FROM refresh_tokens
WHERE user_id = $1
`

func (r *RefreshTokenRepo) GetOrCreate(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, upsertRefreshIfExpired, token.UserID, token.Token, token.CreatedAt, token.ExpiresAt)
	got, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return got, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return got, fmt.Errorf("db error: %w", err)
	}

	// Valid token exists already: return it unchanged
	rows, _ = r.DB.Query(ctx, getRefreshByUser, token.UserID)
	got, err = pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return got, fmt.Errorf("db error: %w", err)
	}

	return got, nil
}

const getRefresh = `-- name: GetRefreshToken
SELECT ` + refreshColumns + ` FROM refresh_tokens
WHERE token = $1
`

// Get token
// It should return result even it expired
func (r *RefreshTokenRepo) Get(ctx context.Context, token string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getRefresh, token)
	return collectRefreshToken(rows)
}

const rotateRefresh = `-- name: RotateRefreshToken
UPDATE refresh_tokens
SET token = $2, created_at = $3, expires_at = $4
WHERE token = $1
RETURNING ` + refreshColumns

func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldToken string, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, rotateRefresh, oldToken, token.Token, token.CreatedAt, token.ExpiresAt)
	return collectRefreshToken(rows)
}

const deleteRefresh = `-- name: DeleteRefreshToken
DELETE FROM refresh_tokens
WHERE token = $1
`

func (r *RefreshTokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.DB.Exec(ctx, deleteRefresh, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteRefreshByUser = `-- name: DeleteRefreshTokensByUser
DELETE FROM refresh_tokens
WHERE user_id = $1
`

func (r *RefreshTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteRefreshByUser, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteExpiredRefresh = `-- name: DeleteExpiredRefreshTokens
DELETE FROM refresh_tokens
WHERE expires_at <= $1
`

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredRefresh, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectRefreshToken(rows pgx.Rows) (models.RefreshToken, error) {
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.UserID, &t.Token, &t.CreatedAt, &t.ExpiresAt)
	return t, err
}
