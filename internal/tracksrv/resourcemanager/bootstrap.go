package resourcemanager

import (
	"context"

	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// BootstrapPublicGroup creates the shared "public" group owned by the given
// user and registers the builtin parameter types in it. Called once, when the
// first user registers.
func BootstrapPublicGroup(ctx context.Context, userID uuid.UUID) (*models.Group, apperrors.Error) {
	group := &models.Group{
		Name:      trackcommon.PublicGroupName,
		CreatorID: userID,
	}
	members := []models.GroupMember{
		{
			UserID:     userID,
			Read:       true,
			Write:      true,
			ShareRead:  true,
			ShareWrite: true,
			IsOwner:    true,
			IsAdmin:    true,
		},
	}
	if err := db.DB(ctx).CreateGroup(ctx, group, members); err != nil {
		return nil, err
	}

	for _, name := range trackcommon.BuiltinParameterTypes {
		res := &models.Resource{
			ResourceType: trackcommon.ResourceTypePluginParameterType,
			GroupID:      group.GroupID,
			CreatorID:    userID,
		}
		snap := &models.Snapshot{
			Name:        name,
			Description: "builtin parameter type",
			CreatedBy:   userID,
		}
		snap.Details.Status = pgtype.Null // builtins carry no structure
		if err := db.DB(ctx).CreateResource(ctx, res, snap); err != nil {
			return nil, err
		}
	}
	log.Ctx(ctx).Info().Str("group_id", group.GroupID.String()).Msg("public group bootstrapped")
	return group, nil
}
