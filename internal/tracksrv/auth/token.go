// Package auth implements user registration, password management, and session
// tokens. Tokens are HMAC-signed JWTs carrying the user's rotating session
// identifier; rotating that identifier invalidates every outstanding token.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/config"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

const tokenAudience = "trackd"

// CreateIdentityToken issues a JWT for the user. The sub claim carries the
// stable user id; the alt claim carries the rotating session identifier that
// validation checks against the database.
func CreateIdentityToken(ctx context.Context, userID, alternativeID uuid.UUID) (string, time.Time, apperrors.Error) {
	tokenDuration, goerr := config.Config().Auth.GetTokenValidity()
	if goerr != nil {
		log.Ctx(ctx).Error().Err(goerr).Msg("unable to parse token duration")
		return "", time.Time{}, ErrTokenGeneration.MsgErr("unable to parse token duration", goerr)
	}

	now := time.Now()
	tokenExpiry := now.Add(tokenDuration)
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"alt": alternativeID.String(),
		"iss": config.Config().ServerHostName + ":" + config.Config().ServerPort,
		"exp": jwt.NewNumericDate(tokenExpiry),
		"iat": jwt.NewNumericDate(now),
		"nbf": jwt.NewNumericDate(now.Add(-2 * time.Minute)), // 2-minute skew buffer
		"aud": []string{tokenAudience},
		"jti": uuid.New().String(),
		"ver": trackcommon.ApiVersion,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, goerr := token.SignedString([]byte(config.Config().Auth.SigningKey))
	if goerr != nil {
		log.Ctx(ctx).Error().Err(goerr).Msg("unable to sign token")
		return "", time.Time{}, ErrTokenGeneration.MsgErr("unable to sign token", goerr)
	}
	return tokenString, tokenExpiry, nil
}

// tokenClaims is the validated content of an identity token.
type tokenClaims struct {
	UserID        uuid.UUID
	AlternativeID uuid.UUID
}

// parseIdentityToken verifies the signature and registered claims and extracts
// the subject and session identifier.
func parseIdentityToken(ctx context.Context, tokenString string) (*tokenClaims, apperrors.Error) {
	claims := jwt.MapClaims{}
	_, goerr := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(config.Config().Auth.SigningKey), nil
	}, jwt.WithAudience(tokenAudience), jwt.WithExpirationRequired())
	if goerr != nil {
		log.Ctx(ctx).Info().Err(goerr).Msg("token validation failed")
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	alt, ok := claims["alt"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}
	alternativeID, err := uuid.Parse(alt)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &tokenClaims{UserID: userID, AlternativeID: alternativeID}, nil
}
