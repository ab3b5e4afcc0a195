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

// ListResourceTags retrieves the tags attached to a resource. The name comes
// from the tag's latest snapshot; tags that were soft-deleted since attachment
// are filtered out.
func (rm *resourceManager) ListResourceTags(ctx context.Context, resourceID uuid.UUID) ([]models.TagRef, apperrors.Error) {
	query := `
		SELECT rt.tag_id, s.name
		FROM resource_tags rt
		JOIN resources t ON t.resource_id = rt.tag_id AND NOT t.is_deleted
		JOIN resource_snapshots s ON s.snapshot_id = t.latest_snapshot
		WHERE rt.resource_id = $1
		ORDER BY s.name, rt.tag_id;
	`
	rows, errdb := rm.conn().QueryContext(ctx, query, resourceID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to query resource tags")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var tags []models.TagRef
	for rows.Next() {
		var tag models.TagRef
		if errdb := rows.Scan(&tag.TagID, &tag.Name); errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan resource tag row")
			return nil, dberror.ErrDatabase.Err(errdb)
		}
		tags = append(tags, tag)
	}
	if errdb = rows.Err(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("error iterating over resource tag rows")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return tags, nil
}

// AddResourceTags attaches tags to a resource. Attaching a tag that is already
// present is a no-op, so appends are idempotent.
func (rm *resourceManager) AddResourceTags(ctx context.Context, resourceID uuid.UUID, tagIDs []uuid.UUID, userID uuid.UUID) apperrors.Error {
	query := `
		INSERT INTO resource_tags (resource_id, tag_id, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, tag_id) DO NOTHING;
	`
	for _, tagID := range tagIDs {
		if _, errdb := rm.conn().ExecContext(ctx, query, resourceID, tagID, userID); errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Str("tag_id", tagID.String()).Msg("failed to attach tag")
			return mapPgError(errdb)
		}
	}
	return nil
}

// ReplaceResourceTags swaps the resource's tag set for the given one in a
// single transaction.
func (rm *resourceManager) ReplaceResourceTags(ctx context.Context, resourceID uuid.UUID, tagIDs []uuid.UUID, userID uuid.UUID) (err apperrors.Error) {
	tx, errdb := rm.conn().BeginTx(ctx, &sql.TxOptions{})
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to start transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, errdb = tx.ExecContext(ctx, `DELETE FROM resource_tags WHERE resource_id = $1;`, resourceID); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to clear resource tags")
		return dberror.ErrDatabase.Err(errdb)
	}

	query := `
		INSERT INTO resource_tags (resource_id, tag_id, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, tag_id) DO NOTHING;
	`
	for _, tagID := range tagIDs {
		if _, errdb = tx.ExecContext(ctx, query, resourceID, tagID, userID); errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Str("tag_id", tagID.String()).Msg("failed to attach tag")
			return mapPgError(errdb)
		}
	}

	if errdb = tx.Commit(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}

// RemoveResourceTag detaches one tag from a resource.
func (rm *resourceManager) RemoveResourceTag(ctx context.Context, resourceID, tagID uuid.UUID) apperrors.Error {
	result, errdb := rm.conn().ExecContext(ctx,
		`DELETE FROM resource_tags WHERE resource_id = $1 AND tag_id = $2;`, resourceID, tagID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to detach tag")
		return dberror.ErrDatabase.Err(errdb)
	}
	rowsAffected, errdb := result.RowsAffected()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve result information")
		return dberror.ErrDatabase.Err(errdb)
	}
	if rowsAffected == 0 {
		log.Ctx(ctx).Info().Str("tag_id", tagID.String()).Msg("tag not attached to resource")
		return dberror.ErrNotFound.Msg("tag not attached to resource")
	}
	return nil
}

// RemoveAllResourceTags detaches every tag from a resource. Detaching from an
// untagged resource is a no-op.
func (rm *resourceManager) RemoveAllResourceTags(ctx context.Context, resourceID uuid.UUID) apperrors.Error {
	if _, errdb := rm.conn().ExecContext(ctx,
		`DELETE FROM resource_tags WHERE resource_id = $1;`, resourceID); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to clear resource tags")
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}
