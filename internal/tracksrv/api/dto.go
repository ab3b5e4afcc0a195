package api

import (
	"encoding/json"
	"time"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/auth"
	"github.com/evalforge/evalforge/internal/tracksrv/resourcemanager"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// resourceResponse is the wire shape of one resource at one snapshot. The
// kind-specific fields are populated only for the kinds that carry them.
type resourceResponse struct {
	ID             uuid.UUID  `json:"id"`
	SnapshotID     uuid.UUID  `json:"snapshotId"`
	SnapshotNum    int64      `json:"snapshot"`
	Group          uuid.UUID  `json:"group"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	CreatedOn      time.Time  `json:"createdOn"`
	LastModifiedOn time.Time  `json:"lastModifiedOn"`
	LatestSnapshot bool       `json:"latestSnapshot"`
	Plugin         *uuid.UUID `json:"plugin,omitempty"`
	Contents       *string    `json:"contents,omitempty"`
	Structure      any        `json:"structure,omitempty"`
}

func resourceToResponse(view *resourcemanager.ResourceView) (*resourceResponse, apperrors.Error) {
	rsp := &resourceResponse{
		ID:             view.ID,
		SnapshotID:     view.SnapshotID,
		SnapshotNum:    view.SnapshotNum,
		Group:          view.GroupID,
		Name:           view.Name,
		Description:    view.Description,
		CreatedOn:      view.CreatedOn,
		LastModifiedOn: view.SnapshotCreatedOn,
		LatestSnapshot: view.LatestSnapshot,
	}
	switch view.ResourceType {
	case trackcommon.ResourceTypePluginFile:
		rsp.Plugin = view.ParentID
		contents, err := resourcemanager.PluginFileContents(view)
		if err != nil {
			return nil, err
		}
		rsp.Contents = &contents
	case trackcommon.ResourceTypePluginParameterType:
		if structure, ok := view.Details["structure"]; ok {
			rsp.Structure = structure
		}
	}
	return rsp, nil
}

func resourcesToResponses(views []*resourcemanager.ResourceView) ([]*resourceResponse, apperrors.Error) {
	rsps := make([]*resourceResponse, 0, len(views))
	for _, view := range views {
		rsp, err := resourceToResponse(view)
		if err != nil {
			return nil, err
		}
		rsps = append(rsps, rsp)
	}
	return rsps, nil
}

// draftResponse is the wire shape of a staged draft.
type draftResponse struct {
	ID               uuid.UUID      `json:"id"`
	Group            uuid.UUID      `json:"group"`
	User             uuid.UUID      `json:"user"`
	Payload          map[string]any `json:"payload"`
	Resource         *uuid.UUID     `json:"resource,omitempty"`
	ResourceSnapshot *uuid.UUID     `json:"resourceSnapshot,omitempty"`
	CreatedOn        time.Time      `json:"createdOn"`
	LastModifiedOn   time.Time      `json:"lastModifiedOn"`
}

func draftToResponse(view *resourcemanager.DraftView) *draftResponse {
	return &draftResponse{
		ID:               view.ID,
		Group:            view.GroupID,
		User:             view.UserID,
		Payload:          view.Payload,
		Resource:         view.TargetResourceID,
		ResourceSnapshot: view.TargetSnapshotID,
		CreatedOn:        view.CreatedOn,
		LastModifiedOn:   view.LastModifiedOn,
	}
}

func draftsToResponses(views []*resourcemanager.DraftView) []*draftResponse {
	rsps := make([]*draftResponse, 0, len(views))
	for _, view := range views {
		rsps = append(rsps, draftToResponse(view))
	}
	return rsps
}

// userResponse is the wire shape of an account.
type userResponse struct {
	ID               uuid.UUID  `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	CreatedOn        time.Time  `json:"createdOn"`
	LastLoginOn      *time.Time `json:"lastLoginOn,omitempty"`
	PasswordExpireOn time.Time  `json:"passwordExpiresOn"`
}

func userToResponse(view *auth.UserView) *userResponse {
	return &userResponse{
		ID:               view.ID,
		Username:         view.Username,
		Email:            view.Email,
		CreatedOn:        view.CreatedOn,
		LastLoginOn:      view.LastLoginOn,
		PasswordExpireOn: view.PasswordExpireOn,
	}
}

// groupResponse is the wire shape of a group. Members are included on
// individual gets and omitted from collection pages.
type groupResponse struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name"`
	Creator   uuid.UUID             `json:"creator"`
	CreatedOn time.Time             `json:"createdOn"`
	Members   []groupMemberResponse `json:"members,omitempty"`
}

type groupMemberResponse struct {
	User       uuid.UUID `json:"user"`
	Read       bool      `json:"read"`
	Write      bool      `json:"write"`
	ShareRead  bool      `json:"shareRead"`
	ShareWrite bool      `json:"shareWrite"`
	Owner      bool      `json:"owner"`
	Admin      bool      `json:"admin"`
}

func groupToResponse(view *resourcemanager.GroupView) *groupResponse {
	rsp := &groupResponse{
		ID:        view.ID,
		Name:      view.Name,
		Creator:   view.CreatorID,
		CreatedOn: view.CreatedOn,
	}
	for _, m := range view.Members {
		rsp.Members = append(rsp.Members, groupMemberResponse{
			User:       m.UserID,
			Read:       m.Read,
			Write:      m.Write,
			ShareRead:  m.ShareRead,
			ShareWrite: m.ShareWrite,
			Owner:      m.IsOwner,
			Admin:      m.IsAdmin,
		})
	}
	return rsp
}

// resourceRequest is the wire shape of a resource create or modify request.
// Kind-specific fields are folded into the service input's details map.
type resourceRequest struct {
	Group       uuid.UUID       `json:"group"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Contents    *string         `json:"contents"`
	Structure   json.RawMessage `json:"structure"`
}

func (req *resourceRequest) toInput(kind trackcommon.ResourceType, parentID uuid.UUID) (*resourcemanager.ResourceInput, apperrors.Error) {
	in := &resourcemanager.ResourceInput{
		GroupID:     req.Group,
		ParentID:    parentID,
		Name:        req.Name,
		Description: req.Description,
	}
	switch kind {
	case trackcommon.ResourceTypePluginFile:
		contents := ""
		if req.Contents != nil {
			contents = *req.Contents
		}
		in.Details = map[string]any{"contents": contents}
	case trackcommon.ResourceTypePluginParameterType:
		if len(req.Structure) > 0 {
			var structure any
			if err := json.Unmarshal(req.Structure, &structure); err != nil {
				return nil, resourcemanager.ErrInvalidInput.Msg("structure is not valid JSON")
			}
			in.Details = map[string]any{"structure": structure}
		}
	}
	return in, nil
}
