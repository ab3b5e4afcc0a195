package resourcemanager

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgtype"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dberror"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// DraftView is the read model of a staged draft.
type DraftView struct {
	ID               uuid.UUID
	ResourceType     trackcommon.ResourceType
	GroupID          uuid.UUID
	UserID           uuid.UUID
	Payload          map[string]any
	TargetResourceID *uuid.UUID
	TargetSnapshotID *uuid.UUID
	CreatedOn        time.Time
	LastModifiedOn   time.Time
}

// draftFields is the decoded shape a draft payload must satisfy before it is
// staged. Kind-specific fields stay in the raw payload untouched.
type draftFields struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// validateDraftPayload checks that the payload is a JSON object with a
// non-empty name and decodes cleanly into the common draft fields.
func validateDraftPayload(payload json.RawMessage) (map[string]any, apperrors.Error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrInvalidDraftPayload.Msg("payload is not valid JSON")
	}
	if !gjson.GetBytes(payload, "name").Exists() {
		return nil, ErrInvalidDraftPayload.Msg("payload is missing the name field")
	}

	var asMap map[string]any
	if err := json.Unmarshal(payload, &asMap); err != nil {
		return nil, ErrInvalidDraftPayload.Msg("payload must be a JSON object")
	}
	var fields draftFields
	if err := mapstructure.Decode(asMap, &fields); err != nil {
		return nil, ErrInvalidDraftPayload.Err(err)
	}
	if fields.Name == "" {
		return nil, ErrInvalidDraftPayload.Msg("payload name must not be empty")
	}
	return asMap, nil
}

func draftToView(draft *models.Draft) *DraftView {
	return &DraftView{
		ID:               draft.DraftID,
		ResourceType:     draft.ResourceType,
		GroupID:          draft.GroupID,
		UserID:           draft.UserID,
		Payload:          detailsFromJSONB(draft.Payload),
		TargetResourceID: draft.TargetResourceID,
		TargetSnapshotID: draft.TargetSnapshotID,
		CreatedOn:        draft.CreatedOn,
		LastModifiedOn:   draft.LastModifiedOn,
	}
}

// CreateDraft stages a draft of a new resource. A user may hold any number of
// new-resource drafts per kind.
func CreateDraft(ctx context.Context, kind trackcommon.ResourceType, groupID uuid.UUID, payload json.RawMessage) (*DraftView, apperrors.Error) {
	if _, apperr := specForKind(kind); apperr != nil {
		return nil, apperr
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}
	asMap, apperr := validateDraftPayload(payload)
	if apperr != nil {
		return nil, apperr
	}

	var jsonb pgtype.JSONB
	if err := jsonb.Set(asMap); err != nil {
		return nil, ErrInvalidDraftPayload.Err(err)
	}
	draft := &models.Draft{
		ResourceType: kind,
		GroupID:      groupID,
		UserID:       userCtx.UserID,
		Payload:      jsonb,
	}
	if err := db.DB(ctx).CreateDraft(ctx, draft); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("resource_type", string(kind)).Str("draft_id", draft.DraftID.String()).Msg("draft created")
	return draftToView(draft), nil
}

// CreateDraftForResource stages a modification draft of an existing resource.
// At most one such draft exists per user and resource; a second create fails
// with already exists. The draft records the snapshot it was taken from.
func CreateDraftForResource(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID, payload json.RawMessage) (*DraftView, apperrors.Error) {
	if _, apperr := specForKind(kind); apperr != nil {
		return nil, apperr
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}
	asMap, apperr := validateDraftPayload(payload)
	if apperr != nil {
		return nil, apperr
	}

	res, err := db.DB(ctx).GetResource(ctx, kind, resourceID)
	if err != nil {
		if err.StatusCode() == 404 {
			return nil, ErrResourceNotFound.Msg(string(kind) + " not found")
		}
		return nil, err
	}

	var jsonb pgtype.JSONB
	if errdb := jsonb.Set(asMap); errdb != nil {
		return nil, ErrInvalidDraftPayload.Err(errdb)
	}
	targetID := res.ResourceID
	snapshotID := res.LatestSnapshot
	draft := &models.Draft{
		ResourceType:     kind,
		GroupID:          res.GroupID,
		UserID:           userCtx.UserID,
		Payload:          jsonb,
		TargetResourceID: &targetID,
		TargetSnapshotID: &snapshotID,
	}
	if err := db.DB(ctx).CreateDraft(ctx, draft); err != nil {
		if err.StatusCode() == 409 {
			return nil, ErrDraftAlreadyExists
		}
		return nil, err
	}
	log.Ctx(ctx).Info().Str("resource_type", string(kind)).Str("draft_id", draft.DraftID.String()).Str("resource_id", resourceID.String()).Msg("draft created for resource")
	return draftToView(draft), nil
}

// GetDraft retrieves a draft the current user owns.
func GetDraft(ctx context.Context, draftID uuid.UUID) (*DraftView, apperrors.Error) {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}
	draft, err := db.DB(ctx).GetDraft(ctx, draftID, userCtx.UserID)
	if err != nil {
		if err.StatusCode() == 404 {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return draftToView(draft), nil
}

// GetDraftForResource retrieves the current user's modification draft of a
// resource.
func GetDraftForResource(ctx context.Context, kind trackcommon.ResourceType, resourceID uuid.UUID) (*DraftView, apperrors.Error) {
	if _, apperr := specForKind(kind); apperr != nil {
		return nil, apperr
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}
	draft, err := db.DB(ctx).GetDraftByTarget(ctx, resourceID, userCtx.UserID)
	if err != nil {
		if err.StatusCode() == 404 {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return draftToView(draft), nil
}

// ModifyDraft overwrites a draft's payload. Modifying another user's draft
// fails with not found.
func ModifyDraft(ctx context.Context, draftID uuid.UUID, payload json.RawMessage) (*DraftView, apperrors.Error) {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}
	asMap, apperr := validateDraftPayload(payload)
	if apperr != nil {
		return nil, apperr
	}

	draft, err := db.DB(ctx).GetDraft(ctx, draftID, userCtx.UserID)
	if err != nil {
		if err.StatusCode() == 404 {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	if errdb := draft.Payload.Set(asMap); errdb != nil {
		return nil, ErrInvalidDraftPayload.Err(errdb)
	}
	if err := db.DB(ctx).UpdateDraft(ctx, draft); err != nil {
		if err.StatusCode() == 404 {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return draftToView(draft), nil
}

// DeleteDraft removes a draft the current user owns.
func DeleteDraft(ctx context.Context, draftID uuid.UUID) apperrors.Error {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return dberror.ErrMissingUserContext
	}
	if err := db.DB(ctx).DeleteDraft(ctx, draftID, userCtx.UserID); err != nil {
		if err.StatusCode() == 404 {
			return ErrDraftNotFound
		}
		return err
	}
	log.Ctx(ctx).Info().Str("draft_id", draftID.String()).Msg("draft deleted")
	return nil
}

// ListDraftsResult is a page of the current user's drafts.
type ListDraftsResult struct {
	Drafts []*DraftView
	Total  int
}

// ListDrafts retrieves a page of the current user's drafts of one kind.
// targetOnly selects modification drafts instead of new-resource drafts.
func ListDrafts(ctx context.Context, kind trackcommon.ResourceType, offset, limit int, targetOnly bool) (*ListDraftsResult, apperrors.Error) {
	if _, apperr := specForKind(kind); apperr != nil {
		return nil, apperr
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}
	filter := &models.DraftFilter{
		ResourceType: kind,
		UserID:       userCtx.UserID,
		Offset:       offset,
		Limit:        limit,
	}
	drafts, total, err := db.DB(ctx).ListDrafts(ctx, filter, targetOnly)
	if err != nil {
		return nil, err
	}
	views := make([]*DraftView, 0, len(drafts))
	for i := range drafts {
		views = append(views, draftToView(&drafts[i]))
	}
	return &ListDraftsResult{Drafts: views, Total: total}, nil
}
