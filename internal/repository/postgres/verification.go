package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/models"
)

type VerificationRepo struct {
	DB DBTX
}

const saveVerification = `-- name: SaveVerificationToken
INSERT INTO verification_tokens (user_id, purpose, token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, purpose) DO UPDATE
SET token = EXCLUDED.token, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
`

func (r *VerificationRepo) Save(ctx context.Context, t models.VerificationToken) error {
	_, err := r.DB.Exec(ctx, saveVerification, t.UserID, string(t.Purpose), t.Token, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Conflicting row replaced only when it expired already
// One statement, so two concurrent issues for the same slot can't both win
const issueVerificationIfExpired = `-- name: IssueVerificationTokenIfExpired
INSERT INTO verification_tokens (user_id, purpose, token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, purpose) DO UPDATE
SET token = EXCLUDED.token, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
WHERE verification_tokens.expires_at <= EXCLUDED.created_at
`

func (r *VerificationRepo) IssueIfExpired(ctx context.Context, t models.VerificationToken) error {
	tag, err := r.DB.Exec(ctx, issueVerificationIfExpired, t.UserID, string(t.Purpose), t.Token, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTooSoon
	}
	return nil
}

const consumeVerification = `-- name: ConsumeVerificationToken
DELETE FROM verification_tokens
WHERE purpose = $1 AND token = $2
RETURNING user_id, purpose, token, created_at, expires_at
`

func (r *VerificationRepo) Consume(ctx context.Context, purpose models.Purpose, token string) (models.VerificationToken, error) {
	rows, _ := r.DB.Query(ctx, consumeVerification, string(purpose), token)
	t, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.VerificationToken, error) {
		var t models.VerificationToken
		var p string
		err := row.Scan(&t.UserID, &p, &t.Token, &t.CreatedAt, &t.ExpiresAt)
		t.Purpose = models.Purpose(p)
		return t, err
	})

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrVerificationTokenNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

const deleteExpiredVerification = `-- name: DeleteExpiredVerificationTokens
DELETE FROM verification_tokens
WHERE expires_at <= $1
`

func (r *VerificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredVerification, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}
