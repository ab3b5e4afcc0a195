package models

import (
	"time"

	"github.com/jackc/pgtype"

	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// Draft is a staging row holding an unsaved payload for a new or existing
// resource. Edit-existing drafts carry the target resource and the snapshot
// the edit is based on; new-resource drafts leave both nil. Drafts are
// mutated in place and hard-deleted, unlike resources.
type Draft struct {
	DraftID          uuid.UUID                `db:"draft_id"`
	ResourceType     trackcommon.ResourceType `db:"resource_type"`
	GroupID          uuid.UUID                `db:"group_id"`
	UserID           uuid.UUID                `db:"user_id"`
	Payload          pgtype.JSONB             `db:"payload"`
	TargetResourceID *uuid.UUID               `db:"target_resource_id"`
	TargetSnapshotID *uuid.UUID               `db:"target_snapshot_id"`
	CreatedOn        time.Time                `db:"created_on"`
	LastModifiedOn   time.Time                `db:"last_modified_on"`
}
