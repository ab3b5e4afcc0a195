package resourcemanager

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dberror"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// TagRefView is one tag attached to a resource.
type TagRefView struct {
	ID   uuid.UUID
	Name string
}

// ListResourceTags retrieves the tags attached to a live resource.
func ListResourceTags(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID) ([]TagRefView, apperrors.Error) {
	if apperr := checkTaggable(ctx, kind, resourceID); apperr != nil {
		return nil, apperr
	}
	return loadTagRefs(ctx, resourceID)
}

// AppendResourceTags attaches tags to a live resource and returns the updated
// set. Every tag id must name a live tag; attaching an already attached tag is
// a no-op.
func AppendResourceTags(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID, tagIDs []uuid.UUID) ([]TagRefView, apperrors.Error) {
	if apperr := checkTaggable(ctx, kind, resourceID); apperr != nil {
		return nil, apperr
	}
	if apperr := checkTagIDs(ctx, tagIDs); apperr != nil {
		return nil, apperr
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}
	if err := db.DB(ctx).AddResourceTags(ctx, resourceID, tagIDs, userCtx.UserID); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("resource_id", resourceID.String()).Int("count", len(tagIDs)).Msg("tags attached")
	return loadTagRefs(ctx, resourceID)
}

// ReplaceResourceTags swaps the resource's tag set for the given one and
// returns the updated set.
func ReplaceResourceTags(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID, tagIDs []uuid.UUID) ([]TagRefView, apperrors.Error) {
	if apperr := checkTaggable(ctx, kind, resourceID); apperr != nil {
		return nil, apperr
	}
	if apperr := checkTagIDs(ctx, tagIDs); apperr != nil {
		return nil, apperr
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}
	if err := db.DB(ctx).ReplaceResourceTags(ctx, resourceID, tagIDs, userCtx.UserID); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("resource_id", resourceID.String()).Int("count", len(tagIDs)).Msg("tags replaced")
	return loadTagRefs(ctx, resourceID)
}

// RemoveResourceTag detaches one tag from a live resource. Fails with not
// found when the tag is not attached.
func RemoveResourceTag(ctx context.Context, kind trackcommon.ResourceType, resourceID, tagID uuid.UUID) apperrors.Error {
	if apperr := checkTaggable(ctx, kind, resourceID); apperr != nil {
		return apperr
	}
	if err := db.DB(ctx).RemoveResourceTag(ctx, resourceID, tagID); err != nil {
		if err.StatusCode() == 404 {
			return ErrResourceNotFound.Msg("tag not attached to resource")
		}
		return err
	}
	log.Ctx(ctx).Info().Str("resource_id", resourceID.String()).Str("tag_id", tagID.String()).Msg("tag detached")
	return nil
}

// RemoveAllResourceTags detaches every tag from a live resource.
func RemoveAllResourceTags(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID) apperrors.Error {
	if apperr := checkTaggable(ctx, kind, resourceID); apperr != nil {
		return apperr
	}
	if err := db.DB(ctx).RemoveAllResourceTags(ctx, resourceID); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("resource_id", resourceID.String()).Msg("tags cleared")
	return nil
}

// checkTaggable verifies the target is a live resource of a taggable kind.
// Tags themselves are not taggable.
func checkTaggable(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID) apperrors.Error {
	if _, apperr := specForKind(kind); apperr != nil {
		return apperr
	}
	if kind == trackcommon.ResourceTypeTag {
		return ErrInvalidInput.Msg("tags cannot be tagged")
	}
	if _, err := db.DB(ctx).GetResource(ctx, kind, resourceID); err != nil {
		if err.StatusCode() == 404 {
			return ErrResourceNotFound.Msg(string(kind) + " not found")
		}
		return err
	}
	return nil
}

// checkTagIDs verifies that every id names a live tag.
func checkTagIDs(ctx context.Context, tagIDs []uuid.UUID) apperrors.Error {
	if len(tagIDs) == 0 {
		return ErrInvalidInput.Msg("at least one tag id is required")
	}
	for _, tagID := range tagIDs {
		if _, err := db.DB(ctx).GetResource(ctx, trackcommon.ResourceTypeTag, tagID); err != nil {
			if err.StatusCode() == 404 {
				return ErrResourceNotFound.Msg("tag " + tagID.String() + " not found")
			}
			return err
		}
	}
	return nil
}

func loadTagRefs(ctx context.Context, resourceID uuid.UUID) ([]TagRefView, apperrors.Error) {
	tags, err := db.DB(ctx).ListResourceTags(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	views := make([]TagRefView, 0, len(tags))
	for _, tag := range tags {
		views = append(views, TagRefView{ID: tag.TagID, Name: tag.Name})
	}
	return views, nil
}
