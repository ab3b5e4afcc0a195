package models

import (
	"time"

	"github.com/jackc/pgtype"

	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

/*
     Column      |          Type           | Collation | Nullable |  Default
-----------------+-------------------------+-----------+----------+-----------
 resource_id     | uuid                    |           | not null |
 resource_type   | character varying(32)   |           | not null |
 group_id        | uuid                    |           | not null |
 creator_id      | uuid                    |           | not null |
 name            | character varying(255)  |           | not null |
 is_deleted      | boolean                 |           | not null | false
 latest_snapshot | uuid                    |           |          |
 created_on      | timestamptz             |           | not null | now()

Partial unique index on (resource_type, group_id, name) WHERE NOT is_deleted
enforces the one-live-resource-per-name invariant; racing creates lose with a
unique violation.
*/

// Resource is the identity row for any versionable entity. The name column is
// denormalized from the latest snapshot so uniqueness is enforced by the
// database rather than application queries.
type Resource struct {
	ResourceID     uuid.UUID                `db:"resource_id"`
	ResourceType   trackcommon.ResourceType `db:"resource_type"`
	GroupID        uuid.UUID                `db:"group_id"`
	CreatorID      uuid.UUID                `db:"creator_id"`
	Name           string                   `db:"name"`
	ParentID       *uuid.UUID               `db:"parent_id"`
	IsDeleted      bool                     `db:"is_deleted"`
	LatestSnapshot uuid.UUID                `db:"latest_snapshot"`
	CreatedOn      time.Time                `db:"created_on"`
}

// Snapshot is one immutable version of a resource's mutable fields. Typed
// per-kind fields live in Details; Name and Description are extracted into
// columns because every kind carries them and search filters on them.
// Snapshot rows are never updated or deleted.
type Snapshot struct {
	SnapshotID   uuid.UUID                `db:"snapshot_id"`
	ResourceID   uuid.UUID                `db:"resource_id"`
	SnapshotNum  int64                    `db:"snapshot_num"`
	ResourceType trackcommon.ResourceType `db:"resource_type"`
	Name         string                   `db:"name"`
	Description  string                   `db:"description"`
	Details      pgtype.JSONB             `db:"details"`
	CreatedBy    uuid.UUID                `db:"created_by"`
	CreatedOn    time.Time                `db:"created_on"`
}

// ResourceWithSnapshot pairs an identity row with its latest snapshot, the
// shape list queries return.
type ResourceWithSnapshot struct {
	Resource Resource
	Snapshot Snapshot
}

// TagRef identifies a tag attached to a resource: the tag's identity row plus
// its current name. List queries resolve the name through the tag's latest
// snapshot so renames show up without touching the link rows.
type TagRef struct {
	TagID uuid.UUID `db:"tag_id"`
	Name  string    `db:"name"`
}

// ResourceLock records a lock event on a resource. A "delete" lock accompanies
// the soft-delete flag; the lock log preserves who deleted what and when.
type ResourceLock struct {
	LockID     uuid.UUID `db:"lock_id"`
	ResourceID uuid.UUID `db:"resource_id"`
	LockType   string    `db:"lock_type"`
	CreatedBy  uuid.UUID `db:"created_by"`
	CreatedOn  time.Time `db:"created_on"`
}
