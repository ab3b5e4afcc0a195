package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/httpx"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// UserAuthMiddleware authenticates the bearer token and attaches the user
// context. The token's session identifier must still match the user row; a
// password change or logout-everywhere rotates it and strands old tokens.
func UserAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).Warn().Msg("missing or invalid authorization header")
			httpx.ErrUnAuthorized("missing or invalid authorization header").Send(w)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		claims, apperr := parseIdentityToken(ctx, token)
		if apperr != nil {
			httpx.ErrUnAuthorized("invalid authorization. login required").Send(w)
			return
		}

		user, apperr := db.DB(ctx).GetUserByAlternativeID(ctx, claims.AlternativeID)
		if apperr != nil {
			log.Ctx(ctx).Warn().Msg("token session identifier no longer valid")
			httpx.ErrUnAuthorized("invalid authorization. login required").Send(w)
			return
		}
		if user.UserID != claims.UserID {
			log.Ctx(ctx).Warn().Msg("token subject does not match session identifier")
			httpx.ErrUnAuthorized("invalid authorization. login required").Send(w)
			return
		}

		groupID := uuid.Nil
		if group, apperr := db.DB(ctx).GetGroupByName(ctx, trackcommon.PublicGroupName); apperr == nil {
			groupID = group.GroupID
		}

		userCtx := &trackcommon.UserContext{
			UserID:   user.UserID,
			Username: user.Username,
			GroupID:  groupID,
		}
		ctx = trackcommon.WithUserContext(ctx, userCtx)
		ctx = log.Ctx(ctx).With().Str("user", user.Username).Logger().WithContext(ctx)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
