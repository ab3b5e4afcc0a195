// Package api exposes the REST surface of the tracking service: versioned
// resource collections, snapshot history, drafts, accounts, groups, and
// session endpoints, mounted under /v1 with a deprecated /v0 alias.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/common/httpx"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/resourcemanager"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// urlUUID parses a UUID path parameter.
func urlUUID(r *http.Request, name string) (uuid.UUID, apperrors.Error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.New("invalid identifier: " + raw).SetStatusCode(http.StatusBadRequest)
	}
	return id, nil
}

// parentFromURL extracts the parent resource id for nested collections.
// Returns uuid.Nil for kinds without a parent.
func parentFromURL(r *http.Request, kind trackcommon.ResourceType) (uuid.UUID, apperrors.Error) {
	if kind != trackcommon.ResourceTypePluginFile {
		return uuid.Nil, nil
	}
	return urlUUID(r, "pluginId")
}

// defaultGroup falls back to the request user's acting group when the request
// does not name one.
func defaultGroup(r *http.Request, groupID uuid.UUID) uuid.UUID {
	if groupID != uuid.Nil {
		return groupID
	}
	if userCtx := trackcommon.GetUserContext(r.Context()); userCtx != nil {
		return userCtx.GroupID
	}
	return uuid.Nil
}

// createResource handles POST on a resource collection.
func createResource(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		var req resourceRequest
		if err := httpx.GetRequestData(r, &req); err != nil {
			return nil, err
		}
		parentID, apperr := parentFromURL(r, kind)
		if apperr != nil {
			return nil, apperr
		}
		in, apperr := req.toInput(kind, parentID)
		if apperr != nil {
			return nil, apperr
		}
		in.GroupID = defaultGroup(r, in.GroupID)

		view, apperr := resourcemanager.CreateResource(r.Context(), kind, in)
		if apperr != nil {
			return nil, apperr
		}
		rsp, apperr := resourceToResponse(view)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{
			StatusCode: http.StatusCreated,
			Location:   r.URL.Path + "/" + view.ID.String(),
			Response:   rsp,
		}, nil
	}
}

// getResource handles GET on a single resource.
func getResource(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		view, apperr := resourcemanager.GetResource(r.Context(), kind, id)
		if apperr != nil {
			return nil, apperr
		}
		rsp, apperr := resourceToResponse(view)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
	}
}

// listResources handles GET on a resource collection with search, group
// filter, and paging.
func listResources(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		p, apperr := parsePageParams(r)
		if apperr != nil {
			return nil, apperr
		}
		parentID, apperr := parentFromURL(r, kind)
		if apperr != nil {
			return nil, apperr
		}
		groupID := uuid.Nil
		if v := r.URL.Query().Get("groupId"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, apperrors.New("invalid groupId").SetStatusCode(http.StatusBadRequest)
			}
			groupID = id
		}

		q := &resourcemanager.ListQuery{
			GroupID:  groupID,
			ParentID: parentID,
			Search:   r.URL.Query().Get("search"),
			Offset:   p.Index,
			Limit:    p.PageLength,
		}
		result, apperr := resourcemanager.ListResources(r.Context(), kind, q)
		if apperr != nil {
			return nil, apperr
		}
		data, apperr := resourcesToResponses(result.Resources)
		if apperr != nil {
			return nil, apperr
		}
		return sendPage(r, p, result.Total, data)
	}
}

// updateResource handles PUT on a single resource, appending a snapshot.
func updateResource(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		var req resourceRequest
		if err := httpx.GetRequestData(r, &req); err != nil {
			return nil, err
		}
		parentID, apperr := parentFromURL(r, kind)
		if apperr != nil {
			return nil, apperr
		}
		in, apperr := req.toInput(kind, parentID)
		if apperr != nil {
			return nil, apperr
		}
		// The group is fixed at creation; updates carry the stored value.
		existing, apperr := resourcemanager.GetResource(r.Context(), kind, id)
		if apperr != nil {
			return nil, apperr
		}
		in.GroupID = existing.GroupID

		view, apperr := resourcemanager.ModifyResource(r.Context(), kind, id, in)
		if apperr != nil {
			return nil, apperr
		}
		rsp, apperr := resourceToResponse(view)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
	}
}

// deleteResource handles DELETE on a single resource.
func deleteResource(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		if apperr := resourcemanager.DeleteResource(r.Context(), kind, id); apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusNoContent}, nil
	}
}

// listSnapshots handles GET on a resource's snapshot history.
func listSnapshots(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		p, apperr := parsePageParams(r)
		if apperr != nil {
			return nil, apperr
		}
		result, apperr := resourcemanager.ListSnapshots(r.Context(), kind, id, p.Index, p.PageLength)
		if apperr != nil {
			return nil, apperr
		}
		data, apperr := resourcesToResponses(result.Snapshots)
		if apperr != nil {
			return nil, apperr
		}
		return sendPage(r, p, result.Total, data)
	}
}

// getSnapshot handles GET on one historical snapshot.
func getSnapshot(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		snapshotID, apperr := urlUUID(r, "snapshotId")
		if apperr != nil {
			return nil, apperr
		}
		view, apperr := resourcemanager.GetSnapshot(r.Context(), kind, id, snapshotID)
		if apperr != nil {
			return nil, apperr
		}
		rsp, apperr := resourceToResponse(view)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
	}
}
