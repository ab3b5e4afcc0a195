package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorChaining(t *testing.T) {
	root := New("db error").SetStatusCode(http.StatusInternalServerError)
	notFound := root.New("not found").SetStatusCode(http.StatusNotFound)

	derived := notFound.Msg("queue not found")
	assert.Equal(t, "queue not found", derived.Error())
	assert.Equal(t, http.StatusNotFound, derived.StatusCode())
	assert.ErrorIs(t, derived, notFound)
	assert.ErrorIs(t, derived, root)
}

func TestErrorAllExpansion(t *testing.T) {
	root := New("invalid input").SetStatusCode(http.StatusBadRequest)
	cause := errors.New("name too long")

	err := root.Err(cause)
	assert.Equal(t, "invalid input", err.ErrorAll())

	expanded := err.SetExpandError(true)
	assert.Contains(t, expanded.ErrorAll(), "name too long")
	assert.ErrorIs(t, expanded, cause)
}

func TestStatusCodeInheritance(t *testing.T) {
	root := New("auth error").SetStatusCode(http.StatusUnauthorized)
	child := root.MsgErr("token rejected", errors.New("expired"))
	assert.Equal(t, http.StatusUnauthorized, child.StatusCode())
	assert.ErrorIs(t, child, root)

	// New status codes do not propagate back to the template.
	reclassified := child.SetStatusCode(http.StatusForbidden)
	assert.Equal(t, http.StatusForbidden, reclassified.StatusCode())
	assert.Equal(t, http.StatusUnauthorized, root.StatusCode())
}
