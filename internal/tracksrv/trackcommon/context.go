package trackcommon

import (
	"context"

	"github.com/evalforge/evalforge/internal/common/uuid"
)

// ctxKeyType represents the type for all context keys.
type ctxKeyType string

const (
	ctxUserContextKey ctxKeyType = "TrackUserContext"
)

// UserContext represents the authenticated principal for the current request.
// It is attached to the request context by the auth middleware and consumed
// by the service layer for ownership and permission checks.
type UserContext struct {
	// UserID is the unique identifier for the user.
	UserID uuid.UUID
	// Username is the login name, kept for log correlation.
	Username string
	// GroupID is the group the user is acting in for this request.
	GroupID uuid.UUID
}

// WithUserContext sets the user context in the provided context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, ctxUserContextKey, uc)
}

// GetUserContext retrieves the user context from the provided context.
// Returns nil if no user is authenticated.
func GetUserContext(ctx context.Context) *UserContext {
	if uc, ok := ctx.Value(ctxUserContextKey).(*UserContext); ok {
		return uc
	}
	return nil
}

// GetUserID returns the authenticated user's id, or uuid.Nil when the
// request is unauthenticated.
func GetUserID(ctx context.Context) uuid.UUID {
	if uc := GetUserContext(ctx); uc != nil {
		return uc.UserID
	}
	return uuid.Nil
}
