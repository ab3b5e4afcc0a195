package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dberror"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// searchColumns maps search fields to snapshot columns. Only extracted columns
// are searchable; kind-specific fields live inside the details JSONB.
var searchColumns = map[string]string{
	"name":        "s.name",
	"description": "s.description",
}

// CreateResource inserts the identity row and its first snapshot in one
// transaction. It assigns fresh UUIDs where the caller left them Nil and sets
// snapshot_num to 1. A name collision within the group (or parent, for child
// resources) surfaces as ErrAlreadyExists from the partial unique index.
func (rm *resourceManager) CreateResource(ctx context.Context, res *models.Resource, snap *models.Snapshot) (err apperrors.Error) {
	if res.ResourceID == uuid.Nil {
		res.ResourceID = uuid.New()
	}
	if snap.SnapshotID == uuid.Nil {
		snap.SnapshotID = uuid.New()
	}
	snap.ResourceID = res.ResourceID
	snap.ResourceType = res.ResourceType
	snap.SnapshotNum = 1
	res.Name = snap.Name
	res.LatestSnapshot = snap.SnapshotID

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

	query := `
		INSERT INTO resources (resource_id, resource_type, group_id, creator_id, name, parent_id, latest_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, errdb = tx.ExecContext(ctx, query, res.ResourceID, res.ResourceType, res.GroupID, res.CreatorID, res.Name, res.ParentID, res.LatestSnapshot)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("name", res.Name).Str("resource_type", string(res.ResourceType)).Msg("failed to insert resource")
		return mapPgError(errdb)
	}

	err = rm.insertSnapshotWithTransaction(ctx, snap, tx)
	if err != nil {
		return err
	}

	query = `
		SELECT created_on FROM resources WHERE resource_id = $1;
	`
	errdb = tx.QueryRowContext(ctx, query, res.ResourceID).Scan(&res.CreatedOn)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to read back resource timestamps")
		return dberror.ErrDatabase.Err(errdb)
	}

	errdb = tx.Commit()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}

func (rm *resourceManager) insertSnapshotWithTransaction(ctx context.Context, snap *models.Snapshot, tx *sql.Tx) apperrors.Error {
	query := `
		INSERT INTO resource_snapshots (snapshot_id, resource_id, snapshot_num, resource_type, name, description, details, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_on;
	`
	errdb := tx.QueryRowContext(ctx, query,
		snap.SnapshotID, snap.ResourceID, snap.SnapshotNum, snap.ResourceType,
		snap.Name, snap.Description, snap.Details, snap.CreatedBy).Scan(&snap.CreatedOn)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("resource_id", snap.ResourceID.String()).Msg("failed to insert snapshot")
		return mapPgError(errdb)
	}
	return nil
}

// GetResource retrieves a live resource identity row by ID and type. Deleted
// resources are not visible here; use HasDeleteLock to distinguish deleted
// from never-existed.
func (rm *resourceManager) GetResource(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID) (*models.Resource, apperrors.Error) {
	query := `
		SELECT resource_id, resource_type, group_id, creator_id, name, parent_id, is_deleted, latest_snapshot, created_on
		FROM resources
		WHERE resource_type = $1 AND resource_id = $2 AND NOT is_deleted;
	`
	res := &models.Resource{}
	errdb := rm.conn().QueryRowContext(ctx, query, resourceType, resourceID).Scan(
		&res.ResourceID, &res.ResourceType, &res.GroupID, &res.CreatorID,
		&res.Name, &res.ParentID, &res.IsDeleted, &res.LatestSnapshot, &res.CreatedOn)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("resource_id", resourceID.String()).Msg("resource not found")
			return nil, dberror.ErrNotFound.Msg("resource not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve resource")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return res, nil
}

// GetLatestSnapshot retrieves the current snapshot of a live resource.
func (rm *resourceManager) GetLatestSnapshot(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID) (*models.Resource, *models.Snapshot, apperrors.Error) {
	query := `
		SELECT r.resource_id, r.resource_type, r.group_id, r.creator_id, r.name, r.parent_id, r.is_deleted, r.latest_snapshot, r.created_on,
		       s.snapshot_id, s.snapshot_num, s.name, s.description, s.details, s.created_by, s.created_on
		FROM resources r
		JOIN resource_snapshots s ON s.snapshot_id = r.latest_snapshot
		WHERE r.resource_type = $1 AND r.resource_id = $2 AND NOT r.is_deleted;
	`
	res := &models.Resource{}
	snap := &models.Snapshot{}
	errdb := rm.conn().QueryRowContext(ctx, query, resourceType, resourceID).Scan(
		&res.ResourceID, &res.ResourceType, &res.GroupID, &res.CreatorID,
		&res.Name, &res.ParentID, &res.IsDeleted, &res.LatestSnapshot, &res.CreatedOn,
		&snap.SnapshotID, &snap.SnapshotNum, &snap.Name, &snap.Description,
		&snap.Details, &snap.CreatedBy, &snap.CreatedOn)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("resource_id", resourceID.String()).Msg("resource not found")
			return nil, nil, dberror.ErrNotFound.Msg("resource not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve latest snapshot")
		return nil, nil, dberror.ErrDatabase.Err(errdb)
	}
	snap.ResourceID = res.ResourceID
	snap.ResourceType = res.ResourceType
	return res, snap, nil
}

// AppendSnapshot adds a new snapshot to a live resource and repoints the
// identity row at it. The resource row is locked for the duration of the
// transaction so concurrent appends serialize and snapshot numbers stay
// contiguous.
func (rm *resourceManager) AppendSnapshot(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID, snap *models.Snapshot) (err apperrors.Error) {
	if snap.SnapshotID == uuid.Nil {
		snap.SnapshotID = uuid.New()
	}
	snap.ResourceID = resourceID

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

	query := `
		SELECT resource_type FROM resources
		WHERE resource_type = $1 AND resource_id = $2 AND NOT is_deleted
		FOR UPDATE;
	`
	var lockedType trackcommon.ResourceType
	errdb = tx.QueryRowContext(ctx, query, resourceType, resourceID).Scan(&lockedType)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("resource_id", resourceID.String()).Msg("resource not found")
			return dberror.ErrNotFound.Msg("resource not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to lock resource")
		return dberror.ErrDatabase.Err(errdb)
	}
	snap.ResourceType = lockedType

	query = `
		SELECT COALESCE(MAX(snapshot_num), 0) + 1 FROM resource_snapshots WHERE resource_id = $1;
	`
	errdb = tx.QueryRowContext(ctx, query, resourceID).Scan(&snap.SnapshotNum)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to compute next snapshot number")
		return dberror.ErrDatabase.Err(errdb)
	}

	err = rm.insertSnapshotWithTransaction(ctx, snap, tx)
	if err != nil {
		return err
	}

	query = `
		UPDATE resources SET name = $1, latest_snapshot = $2 WHERE resource_id = $3;
	`
	_, errdb = tx.ExecContext(ctx, query, snap.Name, snap.SnapshotID, resourceID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("name", snap.Name).Msg("failed to update resource to new snapshot")
		return mapPgError(errdb)
	}

	errdb = tx.Commit()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}

// DeleteResource soft-deletes a live resource and records a delete lock.
// Child resources (plugin files under a plugin) are deleted in the same
// transaction. Snapshot history stays readable.
func (rm *resourceManager) DeleteResource(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID, userID uuid.UUID) (err apperrors.Error) {
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

	query := `
		UPDATE resources SET is_deleted = TRUE
		WHERE resource_type = $1 AND resource_id = $2 AND NOT is_deleted;
	`
	result, errdb := tx.ExecContext(ctx, query, resourceType, resourceID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to delete resource")
		return dberror.ErrDatabase.Err(errdb)
	}
	rowsAffected, errdb := result.RowsAffected()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve result information")
		return dberror.ErrDatabase.Err(errdb)
	}
	if rowsAffected == 0 {
		log.Ctx(ctx).Info().Str("resource_id", resourceID.String()).Msg("resource not found")
		return dberror.ErrNotFound.Msg("resource not found")
	}

	query = `
		UPDATE resources SET is_deleted = TRUE
		WHERE parent_id = $1 AND NOT is_deleted
		RETURNING resource_id;
	`
	rows, errdb := tx.QueryContext(ctx, query, resourceID)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to delete child resources")
		return dberror.ErrDatabase.Err(errdb)
	}
	childIDs := []uuid.UUID{resourceID}
	for rows.Next() {
		var childID uuid.UUID
		if errdb := rows.Scan(&childID); errdb != nil {
			rows.Close()
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan child resource row")
			return dberror.ErrDatabase.Err(errdb)
		}
		childIDs = append(childIDs, childID)
	}
	rows.Close()
	if errdb = rows.Err(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("error iterating over child resource rows")
		return dberror.ErrDatabase.Err(errdb)
	}

	query = `
		INSERT INTO resource_locks (lock_id, resource_id, lock_type, created_by)
		VALUES ($1, $2, $3, $4);
	`
	for _, id := range childIDs {
		_, errdb = tx.ExecContext(ctx, query, uuid.New(), id, trackcommon.LockTypeDelete, userID)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Str("resource_id", id.String()).Msg("failed to insert delete lock")
			return dberror.ErrDatabase.Err(errdb)
		}
	}

	errdb = tx.Commit()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	return nil
}

// HasDeleteLock reports whether a resource was soft-deleted. Snapshot and
// history endpoints use this to answer for resources no longer live.
func (rm *resourceManager) HasDeleteLock(ctx context.Context, resourceID uuid.UUID) (bool, apperrors.Error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM resource_locks WHERE resource_id = $1 AND lock_type = $2);
	`
	var locked bool
	errdb := rm.conn().QueryRowContext(ctx, query, resourceID, trackcommon.LockTypeDelete).Scan(&locked)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to check delete lock")
		return false, dberror.ErrDatabase.Err(errdb)
	}
	return locked, nil
}

// GetSnapshot retrieves one snapshot of a resource by snapshot ID. Snapshots
// remain readable after the resource is deleted.
func (rm *resourceManager) GetSnapshot(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID, snapshotID uuid.UUID) (*models.Snapshot, apperrors.Error) {
	query := `
		SELECT snapshot_id, resource_id, snapshot_num, resource_type, name, description, details, created_by, created_on
		FROM resource_snapshots
		WHERE resource_type = $1 AND resource_id = $2 AND snapshot_id = $3;
	`
	snap := &models.Snapshot{}
	errdb := rm.conn().QueryRowContext(ctx, query, resourceType, resourceID, snapshotID).Scan(
		&snap.SnapshotID, &snap.ResourceID, &snap.SnapshotNum, &snap.ResourceType,
		&snap.Name, &snap.Description, &snap.Details, &snap.CreatedBy, &snap.CreatedOn)
	if errdb != nil {
		if errdb == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("snapshot_id", snapshotID.String()).Msg("snapshot not found")
			return nil, dberror.ErrNotFound.Msg("snapshot not found")
		}
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to retrieve snapshot")
		return nil, dberror.ErrDatabase.Err(errdb)
	}
	return snap, nil
}

// ListSnapshots retrieves a page of a resource's snapshot history in creation
// order, along with the total count.
func (rm *resourceManager) ListSnapshots(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID, offset, limit int) ([]models.Snapshot, int, apperrors.Error) {
	query := `
		SELECT COUNT(*) FROM resource_snapshots WHERE resource_type = $1 AND resource_id = $2;
	`
	var total int
	errdb := rm.conn().QueryRowContext(ctx, query, resourceType, resourceID).Scan(&total)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to count snapshots")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}

	query = `
		SELECT snapshot_id, resource_id, snapshot_num, resource_type, name, description, details, created_by, created_on
		FROM resource_snapshots
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY snapshot_num
		OFFSET $3 LIMIT $4;
	`
	rows, errdb := rm.conn().QueryContext(ctx, query, resourceType, resourceID, offset, limit)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to query snapshots")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var snaps []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		errdb := rows.Scan(&snap.SnapshotID, &snap.ResourceID, &snap.SnapshotNum, &snap.ResourceType,
			&snap.Name, &snap.Description, &snap.Details, &snap.CreatedBy, &snap.CreatedOn)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan snapshot row")
			return nil, 0, dberror.ErrDatabase.Err(errdb)
		}
		snaps = append(snaps, snap)
	}
	if errdb = rows.Err(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("error iterating over snapshot rows")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	return snaps, total, nil
}

// buildResourceWhere assembles the WHERE clause and arguments shared by
// ListResources and its count query. Search clauses match against the latest
// snapshot's extracted columns with case-insensitive LIKE.
func buildResourceWhere(filter *models.ResourceFilter) (string, []any, apperrors.Error) {
	conds := []string{"r.resource_type = $1", "NOT r.is_deleted"}
	args := []any{filter.ResourceType}
	if filter.GroupID != uuid.Nil {
		args = append(args, filter.GroupID)
		conds = append(conds, fmt.Sprintf("r.group_id = $%d", len(args)))
	}
	if filter.ParentID != uuid.Nil {
		args = append(args, filter.ParentID)
		conds = append(conds, fmt.Sprintf("r.parent_id = $%d", len(args)))
	}
	for _, clause := range filter.Search {
		col, ok := searchColumns[clause.Field]
		if !ok {
			return "", nil, dberror.ErrInvalidInput.Msg("unsearchable field: " + clause.Field)
		}
		args = append(args, clause.Pattern)
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
	}
	return strings.Join(conds, " AND "), args, nil
}

// ListResources retrieves a page of live resources of one kind together with
// their latest snapshots, plus the total count matching the filter.
func (rm *resourceManager) ListResources(ctx context.Context, filter *models.ResourceFilter) ([]models.ResourceWithSnapshot, int, apperrors.Error) {
	where, args, apperr := buildResourceWhere(filter)
	if apperr != nil {
		return nil, 0, apperr
	}

	query := `
		SELECT COUNT(*)
		FROM resources r
		JOIN resource_snapshots s ON s.snapshot_id = r.latest_snapshot
		WHERE ` + where + `;
	`
	var total int
	errdb := rm.conn().QueryRowContext(ctx, query, args...).Scan(&total)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to count resources")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}

	args = append(args, filter.Offset, filter.Limit)
	query = `
		SELECT r.resource_id, r.resource_type, r.group_id, r.creator_id, r.name, r.parent_id, r.is_deleted, r.latest_snapshot, r.created_on,
		       s.snapshot_id, s.snapshot_num, s.name, s.description, s.details, s.created_by, s.created_on
		FROM resources r
		JOIN resource_snapshots s ON s.snapshot_id = r.latest_snapshot
		WHERE ` + where + `
		ORDER BY r.created_on, r.resource_id
		OFFSET $` + fmt.Sprint(len(args)-1) + ` LIMIT $` + fmt.Sprint(len(args)) + `;
	`
	rows, errdb := rm.conn().QueryContext(ctx, query, args...)
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Str("resource_type", string(filter.ResourceType)).Msg("failed to query resources")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	defer rows.Close()

	var results []models.ResourceWithSnapshot
	for rows.Next() {
		var rws models.ResourceWithSnapshot
		errdb := rows.Scan(
			&rws.Resource.ResourceID, &rws.Resource.ResourceType, &rws.Resource.GroupID, &rws.Resource.CreatorID,
			&rws.Resource.Name, &rws.Resource.ParentID, &rws.Resource.IsDeleted, &rws.Resource.LatestSnapshot, &rws.Resource.CreatedOn,
			&rws.Snapshot.SnapshotID, &rws.Snapshot.SnapshotNum, &rws.Snapshot.Name, &rws.Snapshot.Description,
			&rws.Snapshot.Details, &rws.Snapshot.CreatedBy, &rws.Snapshot.CreatedOn)
		if errdb != nil {
			log.Ctx(ctx).Error().Err(errdb).Msg("failed to scan resource row")
			return nil, 0, dberror.ErrDatabase.Err(errdb)
		}
		rws.Snapshot.ResourceID = rws.Resource.ResourceID
		rws.Snapshot.ResourceType = rws.Resource.ResourceType
		results = append(results, rws)
	}
	if errdb = rows.Err(); errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("error iterating over resource rows")
		return nil, 0, dberror.ErrDatabase.Err(errdb)
	}
	return results, total, nil
}
