// Package uuid wraps github.com/google/uuid with UUIDv7 (time-ordered) as the
// default. Snapshot and resource identifiers rely on v7 ordering so that
// creation order is recoverable from the identifier alone.
package uuid

import (
	"time"

	"github.com/google/uuid"
)

// UUID is aliased from github.com/google/uuid.UUID.
type UUID = uuid.UUID

// Nil is the zero UUID value.
var Nil = uuid.Nil

// New returns a new UUIDv7. Panics if generation fails.
func New() UUID {
	u, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return u
}

// NewRandom returns a new UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// Parse parses a UUID string. Returns an error if the string is not a valid UUID.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// MustParse parses a UUID string and panics on invalid input.
func MustParse(s string) UUID {
	return uuid.MustParse(s)
}

// Timestamp extracts the creation time embedded in a UUIDv7.
func Timestamp(u UUID) time.Time {
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

// Compare orders two UUIDv7 values by their byte representation, which for v7
// is creation order. Returns -1, 0, or +1.
func Compare(a, b UUID) int {
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// IsBefore reports whether a was created before b.
func IsBefore(a, b UUID) bool {
	return Compare(a, b) == -1
}
