package auth

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/config"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/resourcemanager"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// UserView is the read model of an account, with credentials stripped.
type UserView struct {
	ID               uuid.UUID
	Username         string
	Email            string
	CreatedOn        time.Time
	LastLoginOn      *time.Time
	PasswordExpireOn time.Time
}

func userToView(user *models.User) *UserView {
	return &UserView{
		ID:               user.UserID,
		Username:         user.Username,
		Email:            user.Email,
		CreatedOn:        user.CreatedOn,
		LastLoginOn:      user.LastLoginOn,
		PasswordExpireOn: user.PasswordExpireOn,
	}
}

// RegisterUserRequest carries a registration. The password must be confirmed.
type RegisterUserRequest struct {
	Username        string `json:"username" validate:"required,min=2,max=64"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// RegisterUser creates an account. The first registered user also bootstraps
// the shared public group with the builtin parameter types; every later user
// is added to that group.
func RegisterUser(ctx context.Context, req *RegisterUserRequest) (*UserView, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrRegistration.Err(err)
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrRegistration.Msg("password and confirmation do not match")
	}

	hash, err := trackcommon.HashPassword(req.Password)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to hash password")
		return nil, ErrRegistration.Msg("unable to process password")
	}

	passwordValidity := config.Config().Auth.GetPasswordValidityOrDefault()
	user := &models.User{
		Username:         req.Username,
		Email:            req.Email,
		PasswordHash:     hash,
		PasswordExpireOn: time.Now().Add(passwordValidity),
	}
	if apperr := db.DB(ctx).CreateUser(ctx, user); apperr != nil {
		if apperr.StatusCode() == 409 {
			return nil, ErrUserExists
		}
		return nil, apperr
	}

	// Service calls below need an authenticated principal in the context.
	userCtx := &trackcommon.UserContext{UserID: user.UserID, Username: user.Username}
	uctx := trackcommon.WithUserContext(ctx, userCtx)

	group, apperr := db.DB(ctx).GetGroupByName(ctx, trackcommon.PublicGroupName)
	if apperr != nil {
		if apperr.StatusCode() != 404 {
			return nil, apperr
		}
		// The shared group does not exist yet, so this is the first
		// registration and it bootstraps the group and builtin types.
		bootstrapped, apperr := resourcemanager.BootstrapPublicGroup(uctx, user.UserID)
		if apperr != nil {
			return nil, apperr
		}
		log.Ctx(ctx).Info().Str("user_id", user.UserID.String()).Str("group_id", bootstrapped.GroupID.String()).Msg("first user registered")
	} else {
		member := &models.GroupMember{
			GroupID:    group.GroupID,
			UserID:     user.UserID,
			Read:       true,
			Write:      true,
			ShareRead:  true,
			ShareWrite: true,
		}
		if apperr := db.DB(ctx).AddGroupMember(ctx, member); apperr != nil {
			return nil, apperr
		}
	}

	log.Ctx(ctx).Info().Str("user_id", user.UserID.String()).Str("username", user.Username).Msg("user registered")
	return userToView(user), nil
}

// Authenticate verifies a username and password. The password-expiry window is
// checked even when the hash matches; an expired password must be changed
// before a token is issued.
func Authenticate(ctx context.Context, username, password string) (*models.User, apperrors.Error) {
	user, apperr := db.DB(ctx).GetUserByUsername(ctx, username)
	if apperr != nil {
		if apperr.StatusCode() == 404 {
			return nil, ErrVerification
		}
		return nil, apperr
	}
	if !trackcommon.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrVerification
	}
	if time.Now().After(user.PasswordExpireOn) {
		return nil, ErrPasswordExpired
	}
	if apperr := db.DB(ctx).SetLastLogin(ctx, user.UserID); apperr != nil {
		return nil, apperr
	}
	return user, nil
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token  string
	Expiry time.Time
	User   *UserView
}

// Login authenticates and issues an identity token.
func Login(ctx context.Context, username, password string) (*LoginResult, apperrors.Error) {
	user, apperr := Authenticate(ctx, username, password)
	if apperr != nil {
		return nil, apperr
	}
	token, expiry, apperr := CreateIdentityToken(ctx, user.UserID, user.AlternativeID)
	if apperr != nil {
		return nil, apperr
	}
	log.Ctx(ctx).Info().Str("user_id", user.UserID.String()).Msg("user logged in")
	return &LoginResult{Token: token, Expiry: expiry, User: userToView(user)}, nil
}

// Logout ends the current session. Tokens are stateless, so a plain logout is
// acknowledged and the client discards the token; everywhere rotates the
// session identifier, killing every outstanding token for the user.
func Logout(ctx context.Context, everywhere bool) apperrors.Error {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return ErrNoCurrentUser
	}
	if !everywhere {
		return nil
	}
	if _, apperr := db.DB(ctx).RotateAlternativeID(ctx, userCtx.UserID); apperr != nil {
		return apperr
	}
	log.Ctx(ctx).Info().Str("user_id", userCtx.UserID.String()).Msg("user logged out everywhere")
	return nil
}

// ChangePasswordRequest carries a password change for the current user.
type ChangePasswordRequest struct {
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=8,max=128"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required"`
}

// ChangePassword replaces the current user's password. Success rotates the
// session identifier and extends the expiry window; submitting the current
// password as the new one fails without rotating anything.
func ChangePassword(ctx context.Context, req *ChangePasswordRequest) apperrors.Error {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return ErrNoCurrentUser
	}
	if err := validate.Struct(req); err != nil {
		return ErrPasswordChange.Err(err)
	}
	if req.NewPassword != req.ConfirmNewPassword {
		return ErrPasswordChange.Msg("new password and confirmation do not match")
	}

	user, apperr := db.DB(ctx).GetUser(ctx, userCtx.UserID)
	if apperr != nil {
		if apperr.StatusCode() == 404 {
			return ErrNoCurrentUser
		}
		return apperr
	}
	if !trackcommon.VerifyPassword(user.PasswordHash, req.OldPassword) {
		return ErrPasswordChange.Msg("current password is incorrect")
	}
	if req.NewPassword == req.OldPassword {
		return ErrSamePassword
	}

	hash, err := trackcommon.HashPassword(req.NewPassword)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to hash password")
		return ErrPasswordChange.Msg("unable to process password")
	}
	passwordValidity := config.Config().Auth.GetPasswordValidityOrDefault()
	user.PasswordHash = hash
	user.AlternativeID = uuid.New()
	user.PasswordExpireOn = time.Now().Add(passwordValidity)
	if apperr := db.DB(ctx).UpdatePassword(ctx, user); apperr != nil {
		return apperr
	}
	log.Ctx(ctx).Info().Str("user_id", user.UserID.String()).Msg("password changed")
	return nil
}

// GetCurrentUser retrieves the authenticated user's account.
func GetCurrentUser(ctx context.Context) (*UserView, apperrors.Error) {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, ErrNoCurrentUser
	}
	user, apperr := db.DB(ctx).GetUser(ctx, userCtx.UserID)
	if apperr != nil {
		if apperr.StatusCode() == 404 {
			return nil, ErrNoCurrentUser
		}
		return nil, apperr
	}
	return userToView(user), nil
}

// ModifyCurrentUserRequest carries an account update for the current user.
type ModifyCurrentUserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
}

// ModifyCurrentUser renames the authenticated user's account.
func ModifyCurrentUser(ctx context.Context, req *ModifyCurrentUserRequest) (*UserView, apperrors.Error) {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, ErrNoCurrentUser
	}
	if err := validate.Struct(req); err != nil {
		return nil, ErrRegistration.Err(err)
	}
	if apperr := db.DB(ctx).UpdateUsername(ctx, userCtx.UserID, req.Username); apperr != nil {
		if apperr.StatusCode() == 409 {
			return nil, ErrUserExists
		}
		return nil, apperr
	}
	return GetCurrentUser(ctx)
}

// DeleteCurrentUser soft-deletes the authenticated user's account after
// re-verifying the password. Outstanding tokens die with the rotated session
// identifier.
func DeleteCurrentUser(ctx context.Context, password string) apperrors.Error {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return ErrNoCurrentUser
	}
	user, apperr := db.DB(ctx).GetUser(ctx, userCtx.UserID)
	if apperr != nil {
		if apperr.StatusCode() == 404 {
			return ErrNoCurrentUser
		}
		return apperr
	}
	if !trackcommon.VerifyPassword(user.PasswordHash, password) {
		return ErrVerification
	}
	if apperr := db.DB(ctx).DeleteUser(ctx, user.UserID); apperr != nil {
		return apperr
	}
	log.Ctx(ctx).Info().Str("user_id", user.UserID.String()).Msg("user deleted")
	return nil
}

// userSearchFields are the account fields a search expression may reference.
var userSearchFields = []string{"username", "email"}

// ListUsers retrieves a page of accounts matching the search expression.
func ListUsers(ctx context.Context, search string, offset, limit int) ([]*UserView, int, apperrors.Error) {
	clauses, apperr := resourcemanager.ParseSearchExpression(userSearchFields, search)
	if apperr != nil {
		return nil, 0, apperr
	}
	users, total, apperr := db.DB(ctx).ListUsers(ctx, clauses, offset, limit)
	if apperr != nil {
		return nil, 0, apperr
	}
	views := make([]*UserView, 0, len(users))
	for i := range users {
		views = append(views, userToView(&users[i]))
	}
	return views, total, nil
}

// GetUser retrieves one account by id.
func GetUser(ctx context.Context, userID uuid.UUID) (*UserView, apperrors.Error) {
	user, apperr := db.DB(ctx).GetUser(ctx, userID)
	if apperr != nil {
		return nil, apperr
	}
	return userToView(user), nil
}
