// Package dberror defines the database error taxonomy. All database managers
// return errors derived from these roots so callers can classify failures
// with errors.Is and the transport layer can map them to status codes.
package dberror

import (
	"net/http"

	"github.com/evalforge/evalforge/internal/common/apperrors"
)

var (
	ErrDatabase           apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrAlreadyExists      apperrors.Error = ErrDatabase.New("already exists").SetStatusCode(http.StatusConflict)
	ErrNotFound           apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidInput       apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)
	ErrMissingUserContext apperrors.Error = ErrInvalidInput.New("missing user context").SetStatusCode(http.StatusBadRequest)
	// ErrBackend marks a broken internal invariant, e.g. an aggregate count
	// query returning no row.
	ErrBackend apperrors.Error = ErrDatabase.New("backend invariant violation").SetStatusCode(http.StatusInternalServerError)
)
