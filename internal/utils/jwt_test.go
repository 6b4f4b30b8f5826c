package utils_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rolegate/internal/utils"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tok, err := utils.NewAccessToken(secret, 42, "aluno", 15*time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), tok.Exp)

	claims, err := utils.ParseAccessToken(secret, tok.Token, now.Add(time.Minute))
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "aluno", claims.Role)
	assert.Equal(t, utils.TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestAccessTokenUniqueJTI(t *testing.T) {
	now := time.Now()
	a, err := utils.NewAccessToken(secret, 1, "aluno", time.Minute, now)
	require.NoError(t, err)
	b, err := utils.NewAccessToken(secret, 1, "aluno", time.Minute, now)
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestParseAccessTokenRejects(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tok, err := utils.NewAccessToken(secret, 7, "motorista", time.Minute, now)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		_, err := utils.ParseAccessToken(secret, tok.Token, now.Add(2*time.Minute))
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := utils.ParseAccessToken("other", tok.Token, now)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := utils.ParseAccessToken(secret, "not.a.jwt", now)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("wrong token type", func(t *testing.T) {
		claims := utils.AccessClaims{
			Role:      "motorista",
			TokenType: "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = utils.ParseAccessToken(secret, raw, now)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		claims := utils.AccessClaims{
			TokenType: utils.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = utils.ParseAccessToken(secret, raw, now)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})
}

func TestRefreshToken(t *testing.T) {
	now := time.Now()
	a, err := utils.NewRefreshToken(24*time.Hour, now)
	require.NoError(t, err)
	b, err := utils.NewRefreshToken(24*time.Hour, now)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, now.UTC().Add(24*time.Hour), a.Exp)

	assert.Equal(t, utils.HashRefreshRaw(a.Raw), utils.HashRefreshRaw(a.Raw))
	assert.NotEqual(t, utils.HashRefreshRaw(a.Raw), utils.HashRefreshRaw(b.Raw))
	assert.Len(t, utils.HashRefreshRaw(a.Raw), 64)
}

func TestPassword(t *testing.T) {
	hash, err := utils.HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, utils.VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, utils.VerifyPassword(hash, "wrong-pass"))
}
