package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/models"
	"github.com/nkiryanov/bazario/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	createdAt := mustParseTime("2024-01-01 19:00:01Z")

	// Token owner has to exist
	newToken := func(t *testing.T, tx pgx.Tx, value string) models.RefreshToken {
		user, err := (&UserRepo{DB: tx}).CreateUser(t.Context(), newUserParams(value+"@x.com", nil))
		require.NoError(t, err)

		return models.RefreshToken{
			UserID:    user.ID,
			Token:     value,
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(24 * time.Hour),
		}
	}

	t.Run("get or create new token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "secret-token")

			got, err := repo.GetOrCreate(t.Context(), token)

			require.NoError(t, err)
			require.Equal(t, token.UserID, got.UserID)
			require.Equal(t, token.Token, got.Token)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, 0)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, 0)
		})
	})

	t.Run("get or create keeps valid token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "secret-token")
			_, err := repo.GetOrCreate(t.Context(), token)
			require.NoError(t, err)

			other := token
			other.Token = "other-token"
			other.CreatedAt = createdAt.Add(time.Hour)
			other.ExpiresAt = other.CreatedAt.Add(24 * time.Hour)
			got, err := repo.GetOrCreate(t.Context(), other)

			require.NoError(t, err)
			require.Equal(t, "secret-token", got.Token, "existed token is valid, so must be returned unchanged")
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, 0)
		})
	})

	t.Run("get or create replaces expired token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "secret-token")
			_, err := repo.GetOrCreate(t.Context(), token)
			require.NoError(t, err)

			other := token
			other.Token = "other-token"
			other.CreatedAt = token.ExpiresAt
			other.ExpiresAt = other.CreatedAt.Add(24 * time.Hour)
			got, err := repo.GetOrCreate(t.Context(), other)

			require.NoError(t, err)
			require.Equal(t, "other-token", got.Token)

			_, err = repo.Get(t.Context(), "secret-token")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "at most one token per user")
		})
	})

	t.Run("get token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "secret-token")
			_, err := repo.GetOrCreate(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.Get(t.Context(), token.Token)
			require.NoError(t, err)
			assert.Equal(t, token.UserID, got.UserID)

			_, err = repo.Get(t.Context(), "not-existed")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("rotate", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "secret-token")
			_, err := repo.GetOrCreate(t.Context(), token)
			require.NoError(t, err)

			rotated := models.RefreshToken{
				UserID:    token.UserID,
				Token:     "rotated-token",
				CreatedAt: createdAt.Add(time.Hour),
				ExpiresAt: createdAt.Add(25 * time.Hour),
			}
			got, err := repo.Rotate(t.Context(), token.Token, rotated)
			require.NoError(t, err)
			assert.Equal(t, "rotated-token", got.Token)
			assert.WithinDuration(t, rotated.ExpiresAt, got.ExpiresAt, 0)

			_, err = repo.Rotate(t.Context(), token.Token, rotated)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "old token can't be rotated twice")
		})
	})

	t.Run("delete by user is idempotent", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			token := newToken(t, tx, "secret-token")
			_, err := repo.GetOrCreate(t.Context(), token)
			require.NoError(t, err)

			count, err := repo.DeleteByUser(t.Context(), token.UserID)
			require.NoError(t, err)
			require.Equal(t, int64(1), count)

			count, err = repo.DeleteByUser(t.Context(), token.UserID)
			require.NoError(t, err)
			require.Equal(t, int64(0), count)

			count, err = repo.DeleteByUser(t.Context(), uuid.New())
			require.NoError(t, err)
			require.Equal(t, int64(0), count)
		})
	})

	t.Run("delete and delete expired", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			first := newToken(t, tx, "first")
			second := newToken(t, tx, "second")
			second.ExpiresAt = createdAt.Add(time.Hour)
			for _, token := range []models.RefreshToken{first, second} {
				_, err := repo.GetOrCreate(t.Context(), token)
				require.NoError(t, err)
			}

			count, err := repo.DeleteExpired(t.Context(), createdAt.Add(time.Hour))
			require.NoError(t, err)
			require.Equal(t, int64(1), count)

			err = repo.Delete(t.Context(), first.Token)
			require.NoError(t, err)
			_, err = repo.Get(t.Context(), first.Token)
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})
}
