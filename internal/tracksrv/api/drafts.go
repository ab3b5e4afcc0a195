package api

import (
	"io"
	"net/http"

	"github.com/evalforge/evalforge/internal/common/httpx"
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/resourcemanager"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// draftPayload reads the raw JSON body of a draft request. Draft payloads are
// stored as-is, so they bypass the typed request decoding.
func draftPayload(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, httpx.ErrInvalidRequest("request body is required")
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, httpx.ErrUnableToReadRequest()
	}
	return payload, nil
}

// createDraft handles POST on a kind's draft collection, staging a draft of a
// new resource.
func createDraft(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		payload, err := draftPayload(r)
		if err != nil {
			return nil, err
		}
		groupID := defaultGroup(r, uuid.Nil)
		view, apperr := resourcemanager.CreateDraft(r.Context(), kind, groupID, payload)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{
			StatusCode: http.StatusCreated,
			Location:   r.URL.Path + "/" + view.ID.String(),
			Response:   draftToResponse(view),
		}, nil
	}
}

// listDrafts handles GET on a kind's draft collection, returning the current
// user's new-resource drafts.
func listDrafts(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		p, apperr := parsePageParams(r)
		if apperr != nil {
			return nil, apperr
		}
		result, apperr := resourcemanager.ListDrafts(r.Context(), kind, p.Index, p.PageLength, false)
		if apperr != nil {
			return nil, apperr
		}
		return sendPage(r, p, result.Total, draftsToResponses(result.Drafts))
	}
}

// getDraft handles GET on one draft owned by the current user.
func getDraft(r *http.Request) (*httpx.Response, error) {
	draftID, apperr := urlUUID(r, "draftId")
	if apperr != nil {
		return nil, apperr
	}
	view, apperr := resourcemanager.GetDraft(r.Context(), draftID)
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: draftToResponse(view)}, nil
}

// updateDraft handles PUT on one draft, replacing its payload.
func updateDraft(r *http.Request) (*httpx.Response, error) {
	draftID, apperr := urlUUID(r, "draftId")
	if apperr != nil {
		return nil, apperr
	}
	payload, err := draftPayload(r)
	if err != nil {
		return nil, err
	}
	view, apperr := resourcemanager.ModifyDraft(r.Context(), draftID, payload)
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: draftToResponse(view)}, nil
}

// deleteDraft handles DELETE on one draft.
func deleteDraft(r *http.Request) (*httpx.Response, error) {
	draftID, apperr := urlUUID(r, "draftId")
	if apperr != nil {
		return nil, apperr
	}
	if apperr := resourcemanager.DeleteDraft(r.Context(), draftID); apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

// createResourceDraft handles POST on a resource's draft sub-resource,
// staging a modification draft. At most one exists per user and resource.
func createResourceDraft(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		payload, err := draftPayload(r)
		if err != nil {
			return nil, err
		}
		view, apperr := resourcemanager.CreateDraftForResource(r.Context(), kind, id, payload)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{
			StatusCode: http.StatusCreated,
			Location:   r.URL.Path,
			Response:   draftToResponse(view),
		}, nil
	}
}

// getResourceDraft handles GET on a resource's draft sub-resource.
func getResourceDraft(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		view, apperr := resourcemanager.GetDraftForResource(r.Context(), kind, id)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: draftToResponse(view)}, nil
	}
}

// updateResourceDraft handles PUT on a resource's draft sub-resource.
func updateResourceDraft(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		payload, err := draftPayload(r)
		if err != nil {
			return nil, err
		}
		existing, apperr := resourcemanager.GetDraftForResource(r.Context(), kind, id)
		if apperr != nil {
			return nil, apperr
		}
		view, apperr := resourcemanager.ModifyDraft(r.Context(), existing.ID, payload)
		if apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusOK, Response: draftToResponse(view)}, nil
	}
}

// deleteResourceDraft handles DELETE on a resource's draft sub-resource.
func deleteResourceDraft(kind trackcommon.ResourceType) httpx.RequestHandler {
	return func(r *http.Request) (*httpx.Response, error) {
		id, apperr := urlUUID(r, "id")
		if apperr != nil {
			return nil, apperr
		}
		existing, apperr := resourcemanager.GetDraftForResource(r.Context(), kind, id)
		if apperr != nil {
			return nil, apperr
		}
		if apperr := resourcemanager.DeleteDraft(r.Context(), existing.ID); apperr != nil {
			return nil, apperr
		}
		return &httpx.Response{StatusCode: http.StatusNoContent}, nil
	}
}
