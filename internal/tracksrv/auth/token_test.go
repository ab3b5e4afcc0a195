package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/config"
)

func TestIdentityTokenRoundTrip(t *testing.T) {
	config.TestInit()
	ctx := context.Background()

	userID := uuid.New()
	alternativeID := uuid.New()

	token, expiry, apperr := CreateIdentityToken(ctx, userID, alternativeID)
	require.Nil(t, apperr)
	assert.NotEmpty(t, token)
	assert.True(t, expiry.After(time.Now()))

	claims, apperr := parseIdentityToken(ctx, token)
	require.Nil(t, apperr)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, alternativeID, claims.AlternativeID)
}

func TestParseIdentityTokenRejectsBadTokens(t *testing.T) {
	config.TestInit()
	ctx := context.Background()

	t.Run("garbage", func(t *testing.T) {
		_, apperr := parseIdentityToken(ctx, "not.a.token")
		require.NotNil(t, apperr)
		assert.ErrorIs(t, apperr, ErrInvalidToken)
	})

	t.Run("tampered signature", func(t *testing.T) {
		token, _, apperr := CreateIdentityToken(ctx, uuid.New(), uuid.New())
		require.Nil(t, apperr)
		_, apperr = parseIdentityToken(ctx, token+"x")
		require.NotNil(t, apperr)
		assert.ErrorIs(t, apperr, ErrInvalidToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": uuid.New().String(),
			"alt": uuid.New().String(),
			"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
			"aud": []string{tokenAudience},
		})
		tokenString, err := forged.SignedString([]byte("some other key"))
		require.NoError(t, err)
		_, apperr := parseIdentityToken(ctx, tokenString)
		require.NotNil(t, apperr)
		assert.ErrorIs(t, apperr, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": uuid.New().String(),
			"alt": uuid.New().String(),
			"exp": jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			"aud": []string{tokenAudience},
		})
		tokenString, err := expired.SignedString([]byte(config.Config().Auth.SigningKey))
		require.NoError(t, err)
		_, apperr := parseIdentityToken(ctx, tokenString)
		require.NotNil(t, apperr)
		assert.ErrorIs(t, apperr, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": uuid.New().String(),
			"alt": uuid.New().String(),
			"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
			"aud": []string{"someone-else"},
		})
		tokenString, err := other.SignedString([]byte(config.Config().Auth.SigningKey))
		require.NoError(t, err)
		_, apperr := parseIdentityToken(ctx, tokenString)
		require.NotNil(t, apperr)
		assert.ErrorIs(t, apperr, ErrInvalidToken)
	})
}
