package api

import (
	"net/http"

	"github.com/evalforge/evalforge/internal/common/httpx"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/resourcemanager"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// tagRefResponse is the wire shape of one tag attached to a resource.
type tagRefResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// tagIDListRequest carries the tag ids of an attach or replace request.
type tagIDListRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func tagRefsToResponses(views []resourcemanager.TagRefView) []tagRefResponse {
	rsps := make([]tagRefResponse, 0, len(views))
	for _, view := range views {
		rsps = append(rsps, tagRefResponse{ID: view.ID, Name: view.Name})
	}
	return rsps
}

// getResourceTags handles GET on a resource's tag list.
func getResourceTags(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		views, apperr := resourcemanager.ListResourceTags(r.Context(), kind, id)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: tagRefsToResponses(views)}, nil
	}
}

// appendResourceTags handles POST on a resource's tag list, attaching the
// given tags.
func appendResourceTags(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		var req tagIDListRequest
		if err := httpx.GetRequestData(r, &req); err != nil {
			return nil, err
		}
		views, apperr := resourcemanager.AppendResourceTags(r.Context(), kind, id, req.IDs)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: tagRefsToResponses(views)}, nil
	}
}

// replaceResourceTags handles PUT on a resource's tag list, swapping the tag
// set for the given one.
func replaceResourceTags(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		var req tagIDListRequest
		if err := httpx.GetRequestData(r, &req); err != nil {
			return nil, err
		}
		views, apperr := resourcemanager.ReplaceResourceTags(r.Context(), kind, id, req.IDs)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: tagRefsToResponses(views)}, nil
	}
}

// clearResourceTags handles DELETE on a resource's tag list.
func clearResourceTags(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		if apperr := resourcemanager.RemoveAllResourceTags(r.Context(), kind, id); apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusNoContent}, nil
	}
}

// removeResourceTag handles DELETE on one attached tag.
func removeResourceTag(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		tagID, apperr := urlUUID(r, "tagId")
		if apperr != nil {
			return nil, apperr
		}
		if apperr := resourcemanager.RemoveResourceTag(r.Context(), kind, id, tagID); apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusNoContent}, nil
	}
}
