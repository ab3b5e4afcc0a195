package resourcemanager

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dberror"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// GroupView is the read model of a group with its memberships.
type GroupView struct {
	ID        uuid.UUID
	Name      string
	CreatorID uuid.UUID
	CreatedOn time.Time
	Members   []GroupMemberView
}

// GroupMemberView is one user's permissions within a group.
type GroupMemberView struct {
	UserID     uuid.UUID
	Read       bool
	Write      bool
	ShareRead  bool
	ShareWrite bool
	IsOwner    bool
	IsAdmin    bool
}

func groupToView(group *models.Group, members []models.GroupMember) *GroupView {
	view := &GroupView{
		ID:        group.GroupID,
		Name:      group.Name,
		CreatorID: group.CreatorID,
		CreatedOn: group.CreatedOn,
	}
	for _, m := range members {
		view.Members = append(view.Members, GroupMemberView{
			UserID:     m.UserID,
			Read:       m.Read,
			Write:      m.Write,
			ShareRead:  m.ShareRead,
			ShareWrite: m.ShareWrite,
			IsOwner:    m.IsOwner,
			IsAdmin:    m.IsAdmin,
		})
	}
	return view
}

// GroupInput carries the mutable fields of a group create request.
type GroupInput struct {
	Name string `validate:"required,min=2,max=64"`
}

// CreateGroup registers a group. The creator becomes an owner and admin
// member with full permission bits.
func CreateGroup(ctx context.Context, in *GroupInput) (*GroupView, apperrors.Error) {
	if err := validate.Struct(in); err != nil {
		return nil, ErrInvalidInput.Err(err)
	}
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return nil, dberror.ErrMissingUserContext
	}

	group := &models.Group{
		Name:      in.Name,
		CreatorID: userCtx.UserID,
	}
	members := []models.GroupMember{
		{
			UserID:     userCtx.UserID,
			Read:       true,
			Write:      true,
			ShareRead:  true,
			ShareWrite: true,
			IsOwner:    true,
			IsAdmin:    true,
		},
	}
	if err := db.DB(ctx).CreateGroup(ctx, group, members); err != nil {
		if err.StatusCode() == 409 {
			return nil, ErrAlreadyExists.Msg("a group named " + in.Name + " already exists")
		}
		return nil, err
	}
	log.Ctx(ctx).Info().Str("group_id", group.GroupID.String()).Str("name", group.Name).Msg("group created")
	return groupToView(group, members), nil
}

// GetGroup retrieves a group with its memberships.
func GetGroup(ctx context.Context, groupID uuid.UUID) (*GroupView, apperrors.Error) {
	group, err := db.DB(ctx).GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := db.DB(ctx).GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return groupToView(group, members), nil
}

// ListGroupsResult is a page of groups.
type ListGroupsResult struct {
	Groups []*GroupView
	Total  int
}

// groupSearchFields are the fields a group search expression may reference.
var groupSearchFields = []string{"name"}

// ListGroups retrieves a page of groups matching the search expression.
// Membership lists are omitted from collection pages.
func ListGroups(ctx context.Context, search string, offset, limit int) (*ListGroupsResult, apperrors.Error) {
	clauses, apperr := ParseSearchExpression(groupSearchFields, search)
	if apperr != nil {
		return nil, apperr
	}
	groups, total, err := db.DB(ctx).ListGroups(ctx, clauses, offset, limit)
	if err != nil {
		return nil, err
	}
	views := make([]*GroupView, 0, len(groups))
	for i := range groups {
		views = append(views, groupToView(&groups[i], nil))
	}
	return &ListGroupsResult{Groups: views, Total: total}, nil
}

// AddGroupMember grants a user membership in a group. Only group admins may
// manage members.
func AddGroupMember(ctx context.Context, groupID uuid.UUID, member *GroupMemberView) apperrors.Error {
	userCtx := trackcommon.GetUserContext(ctx)
	if userCtx == nil {
		return dberror.ErrMissingUserContext
	}
	self, err := db.DB(ctx).GetMembership(ctx, groupID, userCtx.UserID)
	if err != nil {
		if err.StatusCode() == 404 {
			return ErrInvalidInput.Msg("not a member of this group")
		}
		return err
	}
	if !self.IsAdmin {
		return ErrInvalidInput.Msg("only group admins may manage members")
	}
	m := &models.GroupMember{
		GroupID:    groupID,
		UserID:     member.UserID,
		Read:       member.Read,
		Write:      member.Write,
		ShareRead:  member.ShareRead,
		ShareWrite: member.ShareWrite,
		IsOwner:    member.IsOwner,
		IsAdmin:    member.IsAdmin,
	}
	if err := db.DB(ctx).AddGroupMember(ctx, m); err != nil {
		if err.StatusCode() == 409 {
			return ErrAlreadyExists.Msg("user is already a member of this group")
		}
		return err
	}
	log.Ctx(ctx).Info().Str("group_id", groupID.String()).Str("user_id", member.UserID.String()).Msg("group member added")
	return nil
}
