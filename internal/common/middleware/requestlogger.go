// Package middleware provides HTTP middleware components for request logging,
// timeout handling, and panic recovery. Logging is structured via zerolog and
// every request gets a unique request id for tracing.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/logtrace"
	"github.com/evalforge/evalforge/internal/common/uuid"
)

// RequestIDHeader is the response header carrying the request id.
const RequestIDHeader = "X-Evalforge-Request-ID"

// RequestLogger logs incoming requests and adds a unique request id to both
// the request context and response headers. The context logger carries the
// request id so downstream log lines correlate.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		requestID := newRequestId()
		ctx = context.WithValue(ctx, logtrace.RequestIdKey, requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)

		requestFields := map[string]any{
			"requestMethod": r.Method,
			"requestPath":   r.URL.Path,
			"remoteIP":      r.RemoteAddr,
			"proto":         r.Proto,
		}
		log.Ctx(ctx).Info().Fields(requestFields).Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newRequestId generates a unique request identifier, falling back to a
// timestamp-based id if UUID generation fails.
func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
