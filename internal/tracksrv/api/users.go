package api

import (
	"net/http"

	"github.com/evalforge/evalforge/internal/common/httpx"
	"github.com/evalforge/evalforge/internal/tracksrv/auth"
)

// registerUser handles POST /users. Registration is the only unauthenticated
// write; the first registered user bootstraps the public group.
func registerUser(r *http.Request) (*httpx.Response, error) {
	var req auth.RegisterUserRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	view, apperr := auth.RegisterUser(r.Context(), &req)
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   r.URL.Path + "/" + view.ID.String(),
		Response:   userToResponse(view),
	}, nil
}

// listUsers handles GET /users with search and paging.
func listUsers(r *http.Request) (*httpx.Response, error) {
	p, apperr := parsePageParams(r)
	if apperr != nil {
		return nil, apperr
	}
	views, total, apperr := auth.ListUsers(r.Context(), r.URL.Query().Get("search"), p.Index, p.PageLength)
	if apperr != nil {
		return nil, apperr
	}
	data := make([]*userResponse, 0, len(views))
	for _, view := range views {
		data = append(data, userToResponse(view))
	}
	return sendPage(r, p, total, data)
}

// getUser handles GET /users/{id}.
func getUser(r *http.Request) (*httpx.Response, error) {
	id, apperr := urlUUID(r, "id")
	if apperr != nil {
		return nil, apperr
	}
	view, apperr := auth.GetUser(r.Context(), id)
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: userToResponse(view)}, nil
}

// getCurrentUser handles GET /users/current.
func getCurrentUser(r *http.Request) (*httpx.Response, error) {
	view, apperr := auth.GetCurrentUser(r.Context())
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: userToResponse(view)}, nil
}

// modifyCurrentUser handles PUT /users/current.
func modifyCurrentUser(r *http.Request) (*httpx.Response, error) {
	var req auth.ModifyCurrentUserRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	view, apperr := auth.ModifyCurrentUser(r.Context(), &req)
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: userToResponse(view)}, nil
}

// deleteCurrentUser handles DELETE /users/current. The current password must
// be supplied in the X-Confirm-Password header.
func deleteCurrentUser(r *http.Request) (*httpx.Response, error) {
	password := r.Header.Get("X-Confirm-Password")
	if password == "" {
		return nil, httpx.ErrInvalidRequest("X-Confirm-Password header is required")
	}
	if apperr := auth.DeleteCurrentUser(r.Context(), password); apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

// changePassword handles POST /users/current/password.
func changePassword(r *http.Request) (*httpx.Response, error) {
	var req auth.ChangePasswordRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if apperr := auth.ChangePassword(r.Context(), &req); apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"status": "password changed"},
	}, nil
}
