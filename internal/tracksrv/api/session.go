package api

import (
	"net/http"
	"time"

	"github.com/evalforge/evalforge/internal/common/httpx"
	"github.com/evalforge/evalforge/internal/tracksrv/auth"
)

// loginRequest carries the credentials for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the issued token.
type loginResponse struct {
	Token  string        `json:"token"`
	Expiry time.Time     `json:"expiry"`
	User   *userResponse `json:"user"`
}

// login handles POST /auth/login.
func login(r *http.Request) (*httpx.Response, error) {
	var req loginRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if req.Username == "" || req.Password == "" {
		return nil, httpx.ErrInvalidRequest("username and password are required")
	}
	result, apperr := auth.Login(r.Context(), req.Username, req.Password)
	if apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &loginResponse{
			Token:  result.Token,
			Expiry: result.Expiry,
			User:   userToResponse(result.User),
		},
	}, nil
}

// logout handles POST /auth/logout. With ?everywhere=true the session
// identifier is rotated and every outstanding token dies.
func logout(r *http.Request) (*httpx.Response, error) {
	everywhere := r.URL.Query().Get("everywhere") == "true"
	if apperr := auth.Logout(r.Context(), everywhere); apperr != nil {
		return nil, apperr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]string{"status": "logged out"},
	}, nil
}
