package tokenmanager

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/testutil"
)

const testSecret = "test-secret-key-that-is-long-enough-for-hs256"

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func TestTokenManager_New(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		m, err := New(Config{SecretKey: testSecret}, nil)
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, []byte(testSecret), m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, "HS256", m.alg.Alg())
		require.NotNil(t, m.now)
	})

	t.Run("short secret fail", func(t *testing.T) {
		_, err := New(Config{SecretKey: "secret"}, nil)

		require.Error(t, err)
	})

	t.Run("negative ttl fail", func(t *testing.T) {
		_, err := New(Config{SecretKey: testSecret, AccessTTL: -time.Second}, nil)

		require.Error(t, err)
	})
}

func TestTokenManager_Access(t *testing.T) {
	clock := testutil.NewClock(mustParseTime("2025-01-01 12:00:00Z"))
	m, err := New(Config{SecretKey: testSecret, AccessTTL: 15 * time.Minute, Now: clock.Now}, nil)
	require.NoError(t, err)

	t.Run("issue claims", func(t *testing.T) {
		issued, err := m.IssueAccess("a@x.com")
		require.NoError(t, err)
		require.Equal(t, clock.Now().Add(15*time.Minute), issued.ExpiresAt)

		claims := &jwt.RegisteredClaims{}
		_, err = jwt.ParseWithClaims(issued.Value, claims, func(token *jwt.Token) (any, error) {
			return []byte(testSecret), nil
		}, jwt.WithTimeFunc(clock.Now))
		require.NoError(t, err)

		assert.Equal(t, "a@x.com", claims.Subject)
		assert.NotEmpty(t, claims.ID, "token has to has jti")
		assert.Equal(t, clock.Now(), claims.IssuedAt.Time.UTC())
		assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt.Time, 0, "access expires at should match issued token")
	})

	t.Run("valid until expiration instant", func(t *testing.T) {
		clock := testutil.NewClock(mustParseTime("2025-01-01 12:00:00Z"))
		m, err := New(Config{SecretKey: testSecret, AccessTTL: time.Minute, Now: clock.Now}, nil)
		require.NoError(t, err)
		issued, err := m.IssueAccess("a@x.com")
		require.NoError(t, err)

		clock.Advance(time.Minute - time.Second)
		subject, err := m.ParseAccess(issued.Value)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", subject)

		clock.Advance(time.Second)
		_, err = m.ParseAccess(issued.Value)
		require.ErrorIs(t, err, apperrors.ErrAccessTokenExpired)
		require.Equal(t, AccessExpired, AccessStatus(err))
	})

	t.Run("signed with other key", func(t *testing.T) {
		other, err := New(Config{SecretKey: strings.Repeat("x", 32), Now: clock.Now}, nil)
		require.NoError(t, err)
		issued, err := other.IssueAccess("a@x.com")
		require.NoError(t, err)

		_, err = m.ParseAccess(issued.Value)

		require.ErrorIs(t, err, apperrors.ErrAccessTokenUnverifiable)
		require.Equal(t, AccessUnverifiable, AccessStatus(err))
	})

	t.Run("other alg", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
			Subject:   "a@x.com",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		})
		value, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = m.ParseAccess(value)

		require.ErrorIs(t, err, apperrors.ErrAccessTokenUnverifiable)
	})

	t.Run("malformed", func(t *testing.T) {
		noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "a@x.com"})
		noExpValue, err := noExp.SignedString([]byte(testSecret))
		require.NoError(t, err)

		noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		})
		noSubValue, err := noSub.SignedString([]byte(testSecret))
		require.NoError(t, err)

		tests := []struct {
			name  string
			value string
		}{
			{"garbage", "garbage"},
			{"empty", ""},
			{"without expiration", noExpValue},
			{"without subject", noSubValue},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := m.ParseAccess(tt.value)

				require.ErrorIs(t, err, apperrors.ErrAccessTokenMalformed)
				require.Equal(t, AccessMalformed, AccessStatus(err))
			})
		}
	})

	t.Run("status of valid", func(t *testing.T) {
		require.Equal(t, AccessValid, AccessStatus(nil))
	})
}
