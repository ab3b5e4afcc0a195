package auth

import (
	"net/http"

	"github.com/evalforge/evalforge/internal/common/apperrors"
)

// Base auth error
var (
	ErrAuthError apperrors.Error = apperrors.New("authentication failed").SetStatusCode(http.StatusUnauthorized)
)

// Credential errors
var (
	ErrVerification    apperrors.Error = ErrAuthError.New("username or password is incorrect").SetStatusCode(http.StatusUnauthorized)
	ErrPasswordExpired apperrors.Error = ErrAuthError.New("password has expired and must be changed").SetStatusCode(http.StatusUnauthorized)
	ErrNoCurrentUser   apperrors.Error = ErrAuthError.New("no authenticated user").SetStatusCode(http.StatusUnauthorized)
	ErrInvalidToken    apperrors.Error = ErrAuthError.New("invalid or expired token").SetStatusCode(http.StatusUnauthorized)
)

// Account management errors
var (
	ErrRegistration   apperrors.Error = ErrAuthError.New("registration failed").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrPasswordChange apperrors.Error = ErrAuthError.New("password change failed").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrSamePassword   apperrors.Error = ErrAuthError.New("new password must differ from the current password").SetStatusCode(http.StatusBadRequest)
	ErrUserExists     apperrors.Error = ErrAuthError.New("username or email is already registered").SetStatusCode(http.StatusConflict)
)

// Token errors
var (
	ErrTokenGeneration apperrors.Error = ErrAuthError.New("unable to generate token").SetStatusCode(http.StatusInternalServerError)
)
