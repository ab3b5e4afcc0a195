package resourcemanager

import (
	"net/http"

	"github.com/evalforge/evalforge/internal/common/apperrors"
)

// Base tracker error
var (
	ErrTrackerError apperrors.Error = apperrors.New("resource processing failed").SetStatusCode(http.StatusInternalServerError)
)

// Not found errors
var (
	ErrResourceNotFound apperrors.Error = ErrTrackerError.New("resource not found").SetStatusCode(http.StatusNotFound)
	ErrSnapshotNotFound apperrors.Error = ErrTrackerError.New("snapshot not found").SetStatusCode(http.StatusNotFound)
	ErrDraftNotFound    apperrors.Error = ErrTrackerError.New("draft not found").SetStatusCode(http.StatusNotFound)
	ErrParentNotFound   apperrors.Error = ErrTrackerError.New("parent resource not found").SetStatusCode(http.StatusNotFound)
)

// Conflict errors
var (
	ErrAlreadyExists      apperrors.Error = ErrTrackerError.New("resource already exists").SetExpandError(true).SetStatusCode(http.StatusConflict)
	ErrDraftAlreadyExists apperrors.Error = ErrTrackerError.New("draft already exists for this resource").SetStatusCode(http.StatusConflict)
)

// Validation errors
var (
	ErrInvalidInput         apperrors.Error = ErrTrackerError.New("invalid input").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrInvalidResourceType  apperrors.Error = ErrTrackerError.New("invalid resource type").SetStatusCode(http.StatusBadRequest)
	ErrInvalidStructure     apperrors.Error = ErrTrackerError.New("invalid parameter type structure").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrSearchNotImplemented apperrors.Error = ErrTrackerError.New("search is not implemented for this resource type").SetStatusCode(http.StatusNotImplemented)
	ErrInvalidSearch        apperrors.Error = ErrTrackerError.New("invalid search expression").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrInvalidDraftPayload  apperrors.Error = ErrTrackerError.New("invalid draft payload").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
)
