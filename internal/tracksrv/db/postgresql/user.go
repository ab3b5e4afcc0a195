package postgresql

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dberror"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
)

const userColumns = `user_id, username, email, password_hash, alternative_id, password_expire_on, last_login_on, is_deleted, created_on`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.UserID, &user.Username, &user.Email, &user.PasswordHash,
		&user.AlternativeID, &user.PasswordExpireOn, &user.LastLoginOn,
		&user.IsDeleted, &user.CreatedOn)
	return user, err
}

// CreateUser inserts a user row. Username and email collisions with live users
// surface as ErrAlreadyExists from the partial unique indexes.
func (pm *principalManager) CreateUser(ctx context.Context, user *models.User) apperrors.Error {
	if user.UserID == uuid.Nil {
		user.UserID = uuid.New()
	}
	if user.AlternativeID == uuid.Nil {
		user.AlternativeID = uuid.New()
	}
	query := `
		INSERT INTO users (user_id, username, email, password_hash, alternative_id, password_expire_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_on;
	`
	errdb := pm.conn().QueryRowContext(ctx, query,
		user.UserID, user.Username, user.Email, user.PasswordHash,
		user.AlternativeID, user.PasswordExpireOn).Scan(&user.CreatedOn)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("username", user.Username).Msg("failed to insert user")
		return mapPgError(errdb)
	}
	return nil
}

// GetUser retrieves a live user by ID.
func (pm *principalManager) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, apperrors.Error) {
	query := `
		SELECT ` + userColumns + ` FROM users WHERE user_id = $1 AND NOT is_deleted;
	`
	user, errdb := scanUser(pm.conn().QueryRowContext(ctx, query, userID))
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("user_id", userID.String()).Msg("user not found")
			return nil, dberror.ErrNotFound.Msg("user not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve user")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return user, nil
}

// GetUserByUsername retrieves a live user by username for authentication.
func (pm *principalManager) GetUserByUsername(ctx context.Context, username string) (*models.User, apperrors.Error) {
	query := `
		SELECT ` + userColumns + ` FROM users WHERE username = $1 AND NOT is_deleted;
	`
	user, errdb := scanUser(pm.conn().QueryRowContext(ctx, query, username))
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("username", username).Msg("user not found")
			return nil, dberror.ErrNotFound.Msg("user not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve user")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return user, nil
}

// GetUserByAlternativeID retrieves a live user by the rotating session
// identifier carried in tokens. A rotated identifier no longer resolves, which
// is what invalidates outstanding sessions.
func (pm *principalManager) GetUserByAlternativeID(ctx context.Context, alternativeID uuid.UUID) (*models.User, apperrors.Error) {
	query := `
		SELECT ` + userColumns + ` FROM users WHERE alternative_id = $1 AND NOT is_deleted;
	`
	user, errdb := scanUser(pm.conn().QueryRowContext(ctx, query, alternativeID))
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Msg("no user for session identifier")
			return nil, dberror.ErrNotFound.Msg("user not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve user")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return user, nil
}

// UpdatePassword replaces the password hash, rotates the session identifier,
// and extends the expiry. Every outstanding token dies with the old
// identifier.
func (pm *principalManager) UpdatePassword(ctx context.Context, user *models.User) apperrors.Error {
	query := `
		UPDATE users
		SET password_hash = $2, alternative_id = $3, password_expire_on = $4
		WHERE user_id = $1 AND NOT is_deleted
		RETURNING user_id;
	`
	var returnedID uuid.UUID
	errdb := pm.conn().QueryRowContext(ctx, query,
		user.UserID, user.PasswordHash, user.AlternativeID, user.PasswordExpireOn).Scan(&returnedID)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("user_id", user.UserID.String()).Msg("user not found")
			return dberror.ErrNotFound.Msg("user not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to update password")
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}

// RotateAlternativeID assigns a fresh session identifier, invalidating all
// outstanding tokens for the user.
func (pm *principalManager) RotateAlternativeID(ctx context.Context, userID uuid.UUID) (uuid.UUID, apperrors.Error) {
	newID := uuid.New()
	query := `
		UPDATE users SET alternative_id = $2 WHERE user_id = $1 AND NOT is_deleted
		RETURNING alternative_id;
	`
	var returnedID uuid.UUID
	errdb := pm.conn().QueryRowContext(ctx, query, userID, newID).Scan(&returnedID)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("user_id", userID.String()).Msg("user not found")
			return uuid.Nil, dberror.ErrNotFound.Msg("user not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to rotate session identifier")
		return uuid.Nil, dberror.ErrDatabase.Err(errdb)
	}
	return returnedID, nil
}

// UpdateUsername changes a live user's login name. A collision with another
// live user surfaces as ErrAlreadyExists.
func (pm *principalManager) UpdateUsername(ctx context.Context, userID uuid.UUID, username string) apperrors.Error {
	query := `
		UPDATE users SET username = $2 WHERE user_id = $1 AND NOT is_deleted
		RETURNING user_id;
	`
	var returnedID uuid.UUID
	errdb := pm.conn().QueryRowContext(ctx, query, userID, username).Scan(&returnedID)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("user_id", userID.String()).Msg("user not found")
			return dberror.ErrNotFound.Msg("user not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Str("username", username).Msg("failed to update username")
		return mapPgError(errdb)
	}
	return nil
}

// SetLastLogin stamps a successful authentication.
func (pm *principalManager) SetLastLogin(ctx context.Context, userID uuid.UUID) apperrors.Error {
	query := `
		UPDATE users SET last_login_on = now() WHERE user_id = $1 AND NOT is_deleted;
	`
	_, errdb := pm.conn().ExecContext(ctx, query, userID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to update last login")
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}

// DeleteUser soft-deletes a user and rotates the session identifier so any
// outstanding tokens stop resolving.
func (pm *principalManager) DeleteUser(ctx context.Context, userID uuid.UUID) apperrors.Error {
	query := `
		UPDATE users SET is_deleted = TRUE, alternative_id = $2
		WHERE user_id = $1 AND NOT is_deleted;
	`
	result, errdb := pm.conn().ExecContext(ctx, query, userID, uuid.New())
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to delete user")
		return dberror.ErrDatabase.Err(errdb)
	}
	rowsAffected, errdb := result.RowsAffected()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve result information")
		return dberror.ErrDatabase.Err(errdb)
	}
	if rowsAffected == 0 {
		log.Ctx(ctx).Info().Str("user_id", userID.String()).Msg("user not found")
		return dberror.ErrNotFound.Msg("user not found")
	}
	return nil
}

// ListUsers retrieves a page of live users with the total count. Search
// clauses match username and email with case-insensitive LIKE.
func (pm *principalManager) ListUsers(ctx context.Context, search []models.SearchClause, offset, limit int) ([]models.User, int, apperrors.Error) {
	where := "NOT is_deleted"
	args := []any{}
	for _, clause := range search {
		var col string
		switch clause.Field {
		case "username":
			col = "username"
		case "email":
			col = "email"
		default:
			return nil, 0, dberror.ErrInvalidInput.Msg("unsearchable field: " + clause.Field)
		}
		args = append(args, clause.Pattern)
		where += " AND " + col + " ILIKE $" + strconv.Itoa(len(args))
	}

	query := `
		SELECT COUNT(*) FROM users WHERE ` + where + `;
	`
	var total int
	errdb := pm.conn().QueryRowContext(ctx, query, args...).Scan(&total)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to count users")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}

	args = append(args, offset, limit)
	query = `
		SELECT ` + userColumns + ` FROM users
		WHERE ` + where + `
		ORDER BY created_on, user_id
		OFFSET $` + strconv.Itoa(len(args)-1) + ` LIMIT $` + strconv.Itoa(len(args)) + `;
	`
	rows, errdb := pm.conn().QueryContext(ctx, query, args...)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to query users")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		errdb := rows.Scan(&user.UserID, &user.Username, &user.Email, &user.PasswordHash,
			&user.AlternativeID, &user.PasswordExpireOn, &user.LastLoginOn,
			&user.IsDeleted, &user.CreatedOn)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan user row")
			return nil, 0, dberror.ErrDatabase.Err(errdb)
		}
		users = append(users, user)
	}
	if errdb = rows.Err(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("error iterating over user rows")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	return users, total, nil
}
