// Package resourcemanager implements the versioned resource services over the
// generic snapshot store: create/get/modify/delete plus snapshot history,
// search, and drafts, shared by every resource kind through the kind registry.
package resourcemanager

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dberror"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ResourceInput carries the mutable fields of a create or modify request.
// Details holds kind-specific fields and is normalized by the kind's
// prepareDetails hook before storage.
type ResourceInput struct {
	GroupID     uuid.UUID      `validate:"required"`
	ParentID    uuid.UUID      `validate:"-"`
	Name        string         `validate:"required,max=255"`
	Description string         `validate:"max=4096"`
	Details     map[string]any `validate:"-"`
}

// ResourceView is the assembled read model of one resource at one snapshot.
type ResourceView struct {
	ID                uuid.UUID
	SnapshotID        uuid.UUID
	SnapshotNum       int64
	ResourceType      trackcommon.ResourceType
	GroupID           uuid.UUID
	ParentID          *uuid.UUID
	Name              string
	Description       string
	Details           map[string]any
	CreatedOn         time.Time
	SnapshotCreatedOn time.Time
	CreatedBy         uuid.UUID
	LatestSnapshot    bool
}

func detailsToJSONB(details map[string]any) (pgtype.JSONB, apperrors.Error) {
	var j pgtype.JSONB
	if len(details) == 0 {
		j.Status = pgtype.Null
		return j, nil
	}
	if err := j.Set(details); err != nil {
		return j, ErrInvalidInput.Msg("details payload is not serializable")
	}
	return j, nil
}

func detailsFromJSONB(j pgtype.JSONB) map[string]any {
	if j.Status != pgtype.Present || len(j.Bytes) == 0 {
		return nil
	}
	var details map[string]any
	if err := json.Unmarshal(j.Bytes, &details); err != nil {
		return nil
	}
	return details
}

func toView(res *models.Resource, snap *models.Snapshot, latest bool) *ResourceView {
	return &ResourceView{
		ID:                res.ResourceID,
		SnapshotID:        snap.SnapshotID,
		SnapshotNum:       snap.SnapshotNum,
		ResourceType:      res.ResourceType,
		GroupID:           res.GroupID,
		ParentID:          res.ParentID,
		Name:              snap.Name,
		Description:       snap.Description,
		Details:           detailsFromJSONB(snap.Details),
		CreatedOn:         res.CreatedOn,
		SnapshotCreatedOn: snap.CreatedOn,
		CreatedBy:         snap.CreatedBy,
		LatestSnapshot:    latest,
	}
}

// CreateResource registers a new resource of the given kind with its first
// snapshot. For kinds that nest under a parent, the parent must be a live
// resource of the declared parent kind.
func CreateResource(ctx context.Context, kind trackcommon.ResourceType, in *ResourceInput) (*ResourceView, apperrors.Error) {
	spec, apperr := specForKind(kind)
	if apperr != nil {
		return nil, apperr
	}
	if err := validate.Struct(in); err != nil {
		return nil, ErrInvalidInput.Err(err)
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}

	if spec.parentType != trackcommon.InvalidResourceType {
		if in.ParentID == uuid.Nil {
			return nil, ErrInvalidInput.Msg("parent resource is required")
		}
		if _, err := db.DB(ctx).GetResource(ctx, spec.parentType, in.ParentID); err != nil {
			if err.StatusCode() == 404 {
				return nil, ErrParentNotFound.Msg(string(spec.parentType) + " not found")
			}
			return nil, err
		}
	}

	if spec.prepareDetails != nil {
		if err := spec.prepareDetails(ctx, in); err != nil {
			return nil, err
		}
	}
	details, apperr := detailsToJSONB(in.Details)
	if apperr != nil {
		return nil, apperr
	}

	res := &models.Resource{
		ResourceType: kind,
		GroupID:      in.GroupID,
		CreatorID:    userCtx.UserID,
	}
	if in.ParentID != uuid.Nil {
		parentID := in.ParentID
		res.ParentID = &parentID
	}
	snap := &models.Snapshot{
		Name:        in.Name,
		Description: in.Description,
		Details:     details,
		CreatedBy:   userCtx.UserID,
	}
	if err := db.DB(ctx).CreateResource(ctx, res, snap); err != nil {
		if err.StatusCode() == 409 {
			return nil, ErrAlreadyExists.Msg("a " + string(kind) + " named " + in.Name + " already exists")
		}
		return nil, err
	}
	log.Ctx(ctx).Info().Str("resource_type", string(kind)).Str("resource_id", res.ResourceID.String()).Str("name", in.Name).Msg("resource created")
	return toView(res, snap, true), nil
}

// GetResource retrieves the latest snapshot of a live resource.
func GetResource(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID) (*ResourceView, apperrors.Error) {
	if _, apperr := specForKind(kind); apperr != nil {
		return nil, apperr
	}
	res, snap, err := db.DB(ctx).GetLatestSnapshot(ctx, kind, resourceID)
	if err != nil {
		if err.StatusCode() == 404 {
			return nil, ErrResourceNotFound.Msg(string(kind) + " not found")
		}
		return nil, err
	}
	return toView(res, snap, true), nil
}

// ModifyResource appends a new snapshot carrying the updated fields and makes
// it current. Modifying a deleted resource fails with not found; renaming onto
// an existing name fails with already exists.
func ModifyResource(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID, in *ResourceInput) (*ResourceView, apperrors.Error) {
	spec, apperr := specForKind(kind)
	if apperr != nil {
		return nil, apperr
	}
	if err := validate.Struct(in); err != nil {
		return nil, ErrInvalidInput.Err(err)
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}

	if spec.prepareDetails != nil {
		if err := spec.prepareDetails(ctx, in); err != nil {
			return nil, err
		}
	}
	details, apperr := detailsToJSONB(in.Details)
	if apperr != nil {
		return nil, apperr
	}

	snap := &models.Snapshot{
		Name:        in.Name,
		Description: in.Description,
		Details:     details,
		CreatedBy:   userCtx.UserID,
	}
	if err := db.DB(ctx).AppendSnapshot(ctx, kind, resourceID, snap); err != nil {
		switch err.StatusCode() {
		case 404:
			return nil, ErrResourceNotFound.Msg(string(kind) + " not found")
		case 409:
			return nil, ErrAlreadyExists.Msg("a " + string(kind) + " named " + in.Name + " already exists")
		}
		return nil, err
	}

	res, err := db.DB(ctx).GetResource(ctx, kind, resourceID)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("resource_type", string(kind)).Str("resource_id", resourceID.String()).Int64("snapshot_num", snap.SnapshotNum).Msg("resource modified")
	return toView(res, snap, true), nil
}

// DeleteResource soft-deletes a live resource. Deleting an already deleted
// resource fails with not found. Snapshot history remains readable.
func DeleteResource(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID) apperrors.Error {
	if _, apperr := specForKind(kind); apperr != nil {
		return apperr
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return dberror.ErrMissingUserContext
	}
	if err := db.DB(ctx).DeleteResource(ctx, kind, resourceID, userCtx.UserID); err != nil {
		if err.StatusCode() == 404 {
			return ErrResourceNotFound.Msg(string(kind) + " not found")
		}
		return err
	}
	log.Ctx(ctx).Info().Str("resource_type", string(kind)).Str("resource_id", resourceID.String()).Msg("resource deleted")
	return nil
}

// GetSnapshot retrieves one historical snapshot. Snapshots of deleted
// resources remain readable.
func GetSnapshot(ctx context.Context, kind trackcommon.ResourceType, resourceID, snapshotID uuid.UUID) (*ResourceView, apperrors.Error) {
	if _, apperr := specForKind(kind); apperr != nil {
		return nil, apperr
	}
	snap, err := db.DB(ctx).GetSnapshot(ctx, kind, resourceID, snapshotID)
	if err != nil {
		if err.StatusCode() == 404 {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return snapshotView(ctx, kind, snap)
}

// ListSnapshotsResult is a page of a resource's snapshot history.
type ListSnapshotsResult struct {
	Snapshots []*ResourceView
	Total     int
}

// ListSnapshots retrieves a page of a resource's history in snapshot order.
func ListSnapshots(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID, offset, limit int) (*ListSnapshotsResult, apperrors.Error) {
	if _, apperr := specForKind(kind); apperr != nil {
		return nil, apperr
	}
	snaps, total, err := db.DB(ctx).ListSnapshots(ctx, kind, resourceID, offset, limit)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrResourceNotFound.Msg(string(kind) + " not found")
	}
	views := make([]*ResourceView, 0, len(snaps))
	for i := range snaps {
		view, apperr := snapshotView(ctx, kind, &snaps[i])
		if apperr != nil {
			return nil, apperr
		}
		views = append(views, view)
	}
	return &ListSnapshotsResult{Snapshots: views, Total: total}, nil
}

// snapshotView assembles a view for a historical snapshot. The identity row is
// fetched to recover group and parent; for deleted resources those fields come
// from the snapshot alone.
func snapshotView(ctx context.Context, kind trackcommon.ResourceType, snap *models.Snapshot) (*ResourceView, apperrors.Error) {
	res, err := db.DB(ctx).GetResource(ctx, kind, snap.ResourceID)
	if err != nil {
		if err.StatusCode() != 404 {
			return nil, err
		}
		res = &models.Resource{
			ResourceID:   snap.ResourceID,
			ResourceType: snap.ResourceType,
			IsDeleted:    true,
		}
	}
	latest := res.LatestSnapshot == snap.SnapshotID && !res.IsDeleted
	return toView(res, snap, latest), nil
}

// ListResourcesResult is a page of live resources with the filter's total.
type ListResourcesResult struct {
	Resources []*ResourceView
	Total     int
}

// ListQuery selects a page of resources of one kind.
type ListQuery struct {
	GroupID  uuid.UUID
	ParentID uuid.UUID
	Search   string
	Offset   int
	Limit    int
}

// ListResources retrieves a page of live resources, optionally constrained by
// group, parent, and a search expression.
func ListResources(ctx context.Context, kind trackcommon.ResourceType, q *ListQuery) (*ListResourcesResult, apperrors.Error) {
	spec, apperr := specForKind(kind)
	if apperr != nil {
		return nil, apperr
	}
	clauses, apperr := parseSearch(spec, q.Search)
	if apperr != nil {
		return nil, apperr
	}
	filter := &models.ResourceFilter{
		ResourceType: kind,
		GroupID:      q.GroupID,
		ParentID:     q.ParentID,
		Search:       clauses,
		Offset:       q.Offset,
		Limit:        q.Limit,
	}
	results, total, err := db.DB(ctx).ListResources(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]*ResourceView, 0, len(results))
	for i := range results {
		views = append(views, toView(&results[i].Resource, &results[i].Snapshot, true))
	}
	return &ListResourcesResult{Resources: views, Total: total}, nil
}
