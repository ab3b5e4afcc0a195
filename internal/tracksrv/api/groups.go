package api

import (
	"net/http"

	"github.com/evalforge/evalforge/internal/common/httpx"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/resourcemanager"
)

// createGroupRequest carries a group create request.
type createGroupRequest struct {
	Name string `json:"name"`
}

// createGroup handles POST /groups. The creator becomes owner and admin.
func createGroup(r *http.Request) (*httpx.Response, error) {
	var req createGroupRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	view, apperr := resourcemanager.CreateGroup(r.Context(), &resourcemanager.GroupInput{Name: req.Name})
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   r.URL.Path + "/" + view.ID.String(),
		Response:   groupToResponse(view),
	}, nil
}

// getGroup handles GET /groups/{id}, including memberships.
func getGroup(r *http.Request) (*httpx.Response, error) {
	id, apperr := urlUUID(r, "id")
	if apperr != nil {
		return nil, apperr
	}
	view, apperr := resourcemanager.GetGroup(r.Context(), id)
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: groupToResponse(view)}, nil
}

// listGroups handles GET /groups with search and paging.
func listGroups(r *http.Request) (*httpx.Response, error) {
	p, apperr := parsePageParams(r)
	if apperr != nil {
		return nil, apperr
	}
	result, apperr := resourcemanager.ListGroups(r.Context(), r.URL.Query().Get("search"), p.Index, p.PageLength)
	if apperr != nil {
		return nil, apperr
	}
	data := make([]*groupResponse, 0, len(result.Groups))
	for _, view := range result.Groups {
		data = append(data, groupToResponse(view))
	}
	return sendPage(r, p, result.Total, data)
}

// addGroupMemberRequest carries a membership grant.
type addGroupMemberRequest struct {
	User       string `json:"user"`
	Read       bool   `json:"read"`
	Write      bool   `json:"write"`
	ShareRead  bool   `json:"shareRead"`
	ShareWrite bool   `json:"shareWrite"`
	Owner      bool   `json:"owner"`
	Admin      bool   `json:"admin"`
}

// addGroupMember handles POST /groups/{id}/members.
func addGroupMember(r *http.Request) (*httpx.Response, error) {
	groupID, apperr := urlUUID(r, "id")
	if apperr != nil {
		return nil, apperr
	}
	var req addGroupMemberRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(req.User)
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid user identifier")
	}
	member := &resourcemanager.GroupMemberView{
		UserID:     userID,
		Read:       req.Read,
		Write:      req.Write,
		ShareRead:  req.ShareRead,
		ShareWrite: req.ShareWrite,
		IsOwner:    req.Owner,
		IsAdmin:    req.Admin,
	}
	if apperr := resourcemanager.AddGroupMember(r.Context(), groupID, member); apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusCreated, Response: map[string]string{"status": "member added"}}, nil
}
