package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonmiddleware "github.com/evalforge/evalforge/internal/common/middleware"
	"github.com/evalforge/evalforge/internal/tracksrv/config"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
)

var once sync.Once

func testInit() {
	once.Do(func() {
		config.TestInit()
		if err := db.Init(context.Background()); err != nil {
			panic(err)
		}
	})
}

func executeTestRequest(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	testInit()
	s, err := CreateNewServer()
	require.NoError(t, err, "create new server")
	s.MountHandlers()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func checkHeader(t *testing.T, h http.Header) {
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.NotEmpty(t, h.Get(commonmiddleware.RequestIDHeader), "no request id")
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), "body: %s", rr.Body.String())
}
