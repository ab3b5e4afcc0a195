package postgresql

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dberror"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
)

// CreateDraft inserts a draft row. For a modification draft (TargetResourceID
// set) the partial unique index allows at most one per user and resource, so a
// duplicate surfaces as ErrAlreadyExists.
func (dm *draftManager) CreateDraft(ctx context.Context, draft *models.Draft) apperrors.Error {
	if draft.DraftID == uuid.Nil {
		draft.DraftID = uuid.New()
	}
	query := `
		INSERT INTO drafts (draft_id, resource_type, group_id, user_id, payload, target_resource_id, target_snapshot_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_on, last_modified_on;
	`
	errdb := dm.conn().QueryRowContext(ctx, query,
		draft.DraftID, draft.ResourceType, draft.GroupID, draft.UserID,
		draft.Payload, draft.TargetResourceID, draft.TargetSnapshotID).Scan(&draft.CreatedOn, &draft.LastModifiedOn)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("resource_type", string(draft.ResourceType)).Msg("failed to insert draft")
		return mapPgError(errdb)
	}
	return nil
}

// GetDraft retrieves one draft owned by the given user. Drafts are private;
// lookups always scope by owner.
func (dm *draftManager) GetDraft(ctx context.Context, draftID, userID uuid.UUID) (*models.Draft, apperrors.Error) {
	query := `
		SELECT draft_id, resource_type, group_id, user_id, payload, target_resource_id, target_snapshot_id, created_on, last_modified_on
		FROM drafts
		WHERE draft_id = $1 AND user_id = $2;
	`
	draft := &models.Draft{}
	errdb := dm.conn().QueryRowContext(ctx, query, draftID, userID).Scan(
		&draft.DraftID, &draft.ResourceType, &draft.GroupID, &draft.UserID,
		&draft.Payload, &draft.TargetResourceID, &draft.TargetSnapshotID,
		&draft.CreatedOn, &draft.LastModifiedOn)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("draft_id", draftID.String()).Msg("draft not found")
			return nil, dberror.ErrNotFound.Msg("draft not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve draft")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return draft, nil
}

// GetDraftByTarget retrieves the user's modification draft for a resource.
func (dm *draftManager) GetDraftByTarget(ctx context.Context, targetResourceID, userID uuid.UUID) (*models.Draft, apperrors.Error) {
	query := `
		SELECT draft_id, resource_type, group_id, user_id, payload, target_resource_id, target_snapshot_id, created_on, last_modified_on
		FROM drafts
		WHERE target_resource_id = $1 AND user_id = $2;
	`
	draft := &models.Draft{}
	errdb := dm.conn().QueryRowContext(ctx, query, targetResourceID, userID).Scan(
		&draft.DraftID, &draft.ResourceType, &draft.GroupID, &draft.UserID,
		&draft.Payload, &draft.TargetResourceID, &draft.TargetSnapshotID,
		&draft.CreatedOn, &draft.LastModifiedOn)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("target_resource_id", targetResourceID.String()).Msg("draft not found")
			return nil, dberror.ErrNotFound.Msg("draft not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve draft")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return draft, nil
}

// UpdateDraft replaces the payload of a draft the user owns and bumps
// last_modified_on.
func (dm *draftManager) UpdateDraft(ctx context.Context, draft *models.Draft) apperrors.Error {
	query := `
		UPDATE drafts
		SET payload = $3, last_modified_on = now()
		WHERE draft_id = $1 AND user_id = $2
		RETURNING last_modified_on;
	`
	errdb := dm.conn().QueryRowContext(ctx, query, draft.DraftID, draft.UserID, draft.Payload).Scan(&draft.LastModifiedOn)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("draft_id", draft.DraftID.String()).Msg("draft not found")
			return dberror.ErrNotFound.Msg("draft not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to update draft")
		return mapPgError(errdb)
	}
	return nil
}

// DeleteDraft removes a draft the user owns.
func (dm *draftManager) DeleteDraft(ctx context.Context, draftID, userID uuid.UUID) apperrors.Error {
	query := `
		DELETE FROM drafts WHERE draft_id = $1 AND user_id = $2;
	`
	result, errdb := dm.conn().ExecContext(ctx, query, draftID, userID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to delete draft")
		return dberror.ErrDatabase.Err(errdb)
	}
	rowsAffected, errdb := result.RowsAffected()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve result information")
		return dberror.ErrDatabase.Err(errdb)
	}
	if rowsAffected == 0 {
		log.Ctx(ctx).Info().Str("draft_id", draftID.String()).Msg("draft not found")
		return dberror.ErrNotFound.Msg("draft not found")
	}
	return nil
}

// ListDrafts retrieves a page of the user's drafts of one kind, with the total
// count. Passing targetOnly selects modification drafts; otherwise only
// new-resource drafts are returned.
func (dm *draftManager) ListDrafts(ctx context.Context, filter *models.DraftFilter, targetOnly bool) ([]models.Draft, int, apperrors.Error) {
	cond := "target_resource_id IS NULL"
	if targetOnly {
		cond = "target_resource_id IS NOT NULL"
	}

	query := `
		SELECT COUNT(*) FROM drafts
		WHERE resource_type = $1 AND user_id = $2 AND ` + cond + `;
	`
	var total int
	errdb := dm.conn().QueryRowContext(ctx, query, filter.ResourceType, filter.UserID).Scan(&total)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to count drafts")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}

	query = `
		SELECT draft_id, resource_type, group_id, user_id, payload, target_resource_id, target_snapshot_id, created_on, last_modified_on
		FROM drafts
		WHERE resource_type = $1 AND user_id = $2 AND ` + cond + `
		ORDER BY created_on, draft_id
		OFFSET $3 LIMIT $4;
	`
	rows, errdb := dm.conn().QueryContext(ctx, query, filter.ResourceType, filter.UserID, filter.Offset, filter.Limit)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to query drafts")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var drafts []models.Draft
	for rows.Next() {
		var draft models.Draft
		errdb := rows.Scan(
			&draft.DraftID, &draft.ResourceType, &draft.GroupID, &draft.UserID,
			&draft.Payload, &draft.TargetResourceID, &draft.TargetSnapshotID,
			&draft.CreatedOn, &draft.LastModifiedOn)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan draft row")
			return nil, 0, dberror.ErrDatabase.Err(errdb)
		}
		drafts = append(drafts, draft)
	}
	if errdb = rows.Err(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("error iterating over draft rows")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	return drafts, total, nil
}
