// Package logtrace wires up the global zerolog logger and exposes request
// tracing helpers.
package logtrace

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global logger to write to stderr with Unix
// timestamps.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

type requestIdKeyType string

// RequestIdKey is the context key under which the request logger middleware
// stores the request id.
const RequestIdKey = requestIdKeyType("requestId")

// RequestIdFromContext extracts the request ID from the context. Returns an
// empty string if none is set.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(RequestIdKey).(string)
	if !ok {
		return ""
	}
	return r
}
