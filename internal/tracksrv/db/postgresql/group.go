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

// CreateGroup inserts a group and its initial memberships in one transaction.
// The group name is globally unique.
func (pm *principalManager) CreateGroup(ctx context.Context, group *models.Group, members []models.GroupMember) (err apperrors.Error) {
	if group.GroupID == uuid.Nil {
		group.GroupID = uuid.New()
	}

	tx, errdb := pm.conn().BeginTx(ctx, &sql.TxOptions{})
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to start transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO groups (group_id, name, creator_id)
		VALUES ($1, $2, $3)
		RETURNING created_on;
	`
	errdb = tx.QueryRowContext(ctx, query, group.GroupID, group.Name, group.CreatorID).Scan(&group.CreatedOn)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("name", group.Name).Msg("failed to insert group")
		return mapPgError(errdb)
	}

	query = `
		INSERT INTO group_members (group_id, user_id, read, write, share_read, share_write, is_owner, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for i := range members {
		members[i].GroupID = group.GroupID
		m := &members[i]
		_, errdb = tx.ExecContext(ctx, query, m.GroupID, m.UserID, m.Read, m.Write, m.ShareRead, m.ShareWrite, m.IsOwner, m.IsAdmin)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Str("user_id", m.UserID.String()).Msg("failed to insert group member")
			return mapPgError(errdb)
		}
	}

	errdb = tx.Commit()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (pm *principalManager) GetGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, apperrors.Error) {
	query := `
		SELECT group_id, name, creator_id, created_on FROM groups WHERE group_id = $1;
	`
	group := &models.Group{}
	errdb := pm.conn().QueryRowContext(ctx, query, groupID).Scan(&group.GroupID, &group.Name, &group.CreatorID, &group.CreatedOn)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("group_id", groupID.String()).Msg("group not found")
			return nil, dberror.ErrNotFound.Msg("group not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve group")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return group, nil
}

// GetGroupByName retrieves a group by its unique name.
func (pm *principalManager) GetGroupByName(ctx context.Context, name string) (*models.Group, apperrors.Error) {
	query := `
		SELECT group_id, name, creator_id, created_on FROM groups WHERE name = $1;
	`
	group := &models.Group{}
	errdb := pm.conn().QueryRowContext(ctx, query, name).Scan(&group.GroupID, &group.Name, &group.CreatorID, &group.CreatedOn)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("name", name).Msg("group not found")
			return nil, dberror.ErrNotFound.Msg("group not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve group")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return group, nil
}

// ListGroups retrieves a page of groups with the total count. Search clauses
// match the name column.
func (pm *principalManager) ListGroups(ctx context.Context, search []models.SearchClause, offset, limit int) ([]models.Group, int, apperrors.Error) {
	where := "TRUE"
	args := []any{}
	for _, clause := range search {
		if clause.Field != "name" {
			return nil, 0, dberror.ErrInvalidInput.Msg("unsearchable field: " + clause.Field)
		}
		args = append(args, clause.Pattern)
		where += " AND name ILIKE $" + strconv.Itoa(len(args))
	}

	query := `
		SELECT COUNT(*) FROM groups WHERE ` + where + `;
	`
	var total int
	errdb := pm.conn().QueryRowContext(ctx, query, args...).Scan(&total)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to count groups")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}

	args = append(args, offset, limit)
	query = `
		SELECT group_id, name, creator_id, created_on FROM groups
		WHERE ` + where + `
		ORDER BY created_on, group_id
		OFFSET $` + strconv.Itoa(len(args)-1) + ` LIMIT $` + strconv.Itoa(len(args)) + `;
	`
	rows, errdb := pm.conn().QueryContext(ctx, query, args...)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to query groups")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var group models.Group
		errdb := rows.Scan(&group.GroupID, &group.Name, &group.CreatorID, &group.CreatedOn)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan group row")
			return nil, 0, dberror.ErrDatabase.Err(errdb)
		}
		groups = append(groups, group)
	}
	if errdb = rows.Err(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("error iterating over group rows")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	return groups, total, nil
}

// AddGroupMember inserts a membership row.
func (pm *principalManager) AddGroupMember(ctx context.Context, member *models.GroupMember) apperrors.Error {
	query := `
		INSERT INTO group_members (group_id, user_id, read, write, share_read, share_write, is_owner, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, errdb := pm.conn().ExecContext(ctx, query,
		member.GroupID, member.UserID, member.Read, member.Write,
		member.ShareRead, member.ShareWrite, member.IsOwner, member.IsAdmin)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("group_id", member.GroupID.String()).Str("user_id", member.UserID.String()).Msg("failed to insert group member")
		return mapPgError(errdb)
	}
	return nil
}

// GetGroupMembers retrieves all memberships of a group.
func (pm *principalManager) GetGroupMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, apperrors.Error) {
	query := `
		SELECT group_id, user_id, read, write, share_read, share_write, is_owner, is_admin
		FROM group_members WHERE group_id = $1;
	`
	rows, errdb := pm.conn().QueryContext(ctx, query, groupID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to query group members")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		errdb := rows.Scan(&m.GroupID, &m.UserID, &m.Read, &m.Write, &m.ShareRead, &m.ShareWrite, &m.IsOwner, &m.IsAdmin)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan group member row")
			return nil, dberror.ErrDatabase.Err(errdb)
		}
		members = append(members, m)
	}
	if errdb = rows.Err(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("error iterating over group member rows")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return members, nil
}

// GetMembership retrieves one user's membership in a group.
func (pm *principalManager) GetMembership(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, apperrors.Error) {
	query := `
		SELECT group_id, user_id, read, write, share_read, share_write, is_owner, is_admin
		FROM group_members WHERE group_id = $1 AND user_id = $2;
	`
	m := &models.GroupMember{}
	errdb := pm.conn().QueryRowContext(ctx, query, groupID, userID).Scan(
		&m.GroupID, &m.UserID, &m.Read, &m.Write, &m.ShareRead, &m.ShareWrite, &m.IsOwner, &m.IsAdmin)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("group_id", groupID.String()).Str("user_id", userID.String()).Msg("membership not found")
			return nil, dberror.ErrNotFound.Msg("membership not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve membership")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return m, nil
}
