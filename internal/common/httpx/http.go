// Package httpx provides HTTP request/response handling utilities shared by
// all API handlers: JSON request decoding, a response wrapper that funnels
// handler errors through a single mapper, and typed HTTP error values.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/common/apperrors"
)

// GetRequestData parses a JSON request body into the provided data structure.
// Only POST and PUT carry bodies in this API. Returns an error if the body is
// empty or cannot be parsed.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response represents an HTTP response with a status code, optional Location
// header value, and a body to serialize as JSON.
type Response struct {
	StatusCode int
	Location   string
	Response   any
}

// RequestHandler is the handler signature used by all API endpoints.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler into an http.HandlerFunc, translating
// returned errors into JSON error responses. apperrors carry their own status
// codes; anything else becomes a 500.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			if httperror, ok := err.(*Error); ok {
				httperror.Send(w)
			} else if appErr, ok := err.(apperrors.Error); ok {
				statusCode := appErr.StatusCode()
				if statusCode == 0 {
					statusCode = http.StatusInternalServerError
				}
				httperror := &Error{
					StatusCode:  statusCode,
					Description: appErr.ErrorAll(),
				}
				httperror.Send(w)
			} else {
				ErrApplicationError(err.Error()).Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == http.StatusNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
	})
}
