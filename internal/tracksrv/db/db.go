// Package db provides database interfaces and implementations for the
// tracking service. It defines four manager interfaces:
// - ResourceManager: versioned resources, snapshots, and delete locks
// - DraftManager: private draft staging rows
// - PrincipalManager: users, groups, and memberships
// - ConnectionManager: connection lifecycle
package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dbmanager"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/db/postgresql"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// ResourceManager handles versioned resources of every kind. All operations
// require a valid context and may return apperrors.Error for failure cases.
type ResourceManager interface {
	CreateResource(ctx context.Context, res *models.Resource, snap *models.Snapshot) apperrors.Error
	GetResource(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID) (*models.Resource, apperrors.Error)
	GetLatestSnapshot(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID) (*models.Resource, *models.Snapshot, apperrors.Error)
	AppendSnapshot(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID, snap *models.Snapshot) apperrors.Error
	DeleteResource(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID, userID uuid.UUID) apperrors.Error
	HasDeleteLock(ctx context.Context, resourceID uuid.UUID) (bool, apperrors.Error)
	GetSnapshot(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID, snapshotID uuid.UUID) (*models.Snapshot, apperrors.Error)
	ListSnapshots(ctx context.Context, resourceType trackcommon.ResourceType, resourceID uuid.UUID, offset, limit int) ([]models.Snapshot, int, apperrors.Error)
	ListResources(ctx context.Context, filter *models.ResourceFilter) ([]models.ResourceWithSnapshot, int, apperrors.Error)

	ListResourceTags(ctx context.Context, resourceID uuid.UUID) ([]models.TagRef, apperrors.Error)
	AddResourceTags(ctx context.Context, resourceID uuid.UUID, tagIDs []uuid.UUID, userID uuid.UUID) apperrors.Error
	ReplaceResourceTags(ctx context.Context, resourceID uuid.UUID, tagIDs []uuid.UUID, userID uuid.UUID) apperrors.Error
	RemoveResourceTag(ctx context.Context, resourceID, tagID uuid.UUID) apperrors.Error
	RemoveAllResourceTags(ctx context.Context, resourceID uuid.UUID) apperrors.Error
}

// DraftManager handles draft staging rows. Drafts are private to their owner;
// every operation scopes by user ID.
type DraftManager interface {
	CreateDraft(ctx context.Context, draft *models.Draft) apperrors.Error
	GetDraft(ctx context.Context, draftID, userID uuid.UUID) (*models.Draft, apperrors.Error)
	GetDraftByTarget(ctx context.Context, targetResourceID, userID uuid.UUID) (*models.Draft, apperrors.Error)
	UpdateDraft(ctx context.Context, draft *models.Draft) apperrors.Error
	DeleteDraft(ctx context.Context, draftID, userID uuid.UUID) apperrors.Error
	ListDrafts(ctx context.Context, filter *models.DraftFilter, targetOnly bool) ([]models.Draft, int, apperrors.Error)
}

// PrincipalManager handles users, groups, and memberships.
type PrincipalManager interface {
	CreateUser(ctx context.Context, user *models.User) apperrors.Error
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, apperrors.Error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, apperrors.Error)
	GetUserByAlternativeID(ctx context.Context, alternativeID uuid.UUID) (*models.User, apperrors.Error)
	UpdatePassword(ctx context.Context, user *models.User) apperrors.Error
	RotateAlternativeID(ctx context.Context, userID uuid.UUID) (uuid.UUID, apperrors.Error)
	UpdateUsername(ctx context.Context, userID uuid.UUID, username string) apperrors.Error
	SetLastLogin(ctx context.Context, userID uuid.UUID) apperrors.Error
	DeleteUser(ctx context.Context, userID uuid.UUID) apperrors.Error
	ListUsers(ctx context.Context, search []models.SearchClause, offset, limit int) ([]models.User, int, apperrors.Error)

	CreateGroup(ctx context.Context, group *models.Group, members []models.GroupMember) apperrors.Error
	GetGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, apperrors.Error)
	GetGroupByName(ctx context.Context, name string) (*models.Group, apperrors.Error)
	ListGroups(ctx context.Context, search []models.SearchClause, offset, limit int) ([]models.Group, int, apperrors.Error)
	AddGroupMember(ctx context.Context, member *models.GroupMember) apperrors.Error
	GetGroupMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, apperrors.Error)
	GetMembership(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, apperrors.Error)
}

// ConnectionManager handles connection lifecycle.
type ConnectionManager interface {
	// Close returns the connection to the pool.
	Close(ctx context.Context)
}

// Database combines the managers into a single interface so handlers get a
// unified access layer while each concern stays separately mockable.
type Database interface {
	ResourceManager
	DraftManager
	PrincipalManager
	ConnectionManager
}

var pool dbmanager.Pool

// Init initializes the database connection pool and applies pending schema
// migrations. It must be called once before any connection is requested.
func Init(ctx context.Context) error {
	pg, err := dbmanager.NewPool(ctx, "postgresql")
	if err != nil {
		return err
	}
	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	pool = pg
	return nil
}

// Conn returns a new database connection from the pool.
func Conn(ctx context.Context) (dbmanager.Conn, error) {
	if pool != nil {
		conn, err := pool.Conn(ctx)
		if err == nil {
			return conn, nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
		return nil, err
	}
	return nil, fmt.Errorf("database pool not initialized")
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "EvalforgeTrackerDb"

// ConnCtx adds a database connection to the context.
func ConnCtx(ctx context.Context) (context.Context, error) {
	conn, err := Conn(ctx)
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, ctxDbKey, conn), nil
}

type evalforgeTrackerDb struct {
	ResourceManager
	DraftManager
	PrincipalManager
	ConnectionManager
}

// DB returns a database instance bound to the connection carried in the
// context. Returns nil if no connection is present.
func DB(ctx context.Context) Database {
	if conn, ok := ctx.Value(ctxDbKey).(dbmanager.Conn); ok {
		rm, dm, pm, cm := postgresql.NewTrackerDb(conn)
		return &evalforgeTrackerDb{
			ResourceManager:   rm,
			DraftManager:      dm,
			PrincipalManager:  pm,
			ConnectionManager: cm,
		}
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}
