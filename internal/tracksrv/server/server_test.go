package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

func TestGetVersion(t *testing.T) {
	req, _ := http.NewRequest("GET", "/version", nil)
	response := executeTestRequest(t, req, "")

	require.Equal(t, http.StatusOK, response.Code)
	checkHeader(t, response.Result().Header)

	var rsp getVersionRsp
	decodeBody(t, response, &rsp)
	assert.Contains(t, rsp.ServerVersion, trackcommon.ServerVersion)
	assert.Equal(t, trackcommon.ApiVersion, rsp.ApiVersion)
}

func TestGetReadiness(t *testing.T) {
	req, _ := http.NewRequest("GET", "/ready", nil)
	response := executeTestRequest(t, req, "")

	require.Equal(t, http.StatusOK, response.Code)
	checkHeader(t, response.Result().Header)

	var rsp map[string]string
	decodeBody(t, response, &rsp)
	assert.Equal(t, "ready", rsp["status"])
}

func TestAuthRequired(t *testing.T) {
	req, _ := http.NewRequest("GET", "/v1/queues", nil)
	response := executeTestRequest(t, req, "")
	require.Equal(t, http.StatusUnauthorized, response.Code)

	req, _ = http.NewRequest("GET", "/v1/queues", nil)
	response = executeTestRequest(t, req, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestDeprecatedAlias(t *testing.T) {
	req, _ := http.NewRequest("GET", "/v0/queues", nil)
	response := executeTestRequest(t, req, "")

	// The alias answers like /v1 but tags the response as deprecated.
	assert.Equal(t, http.StatusUnauthorized, response.Code)
	assert.Equal(t, "true", response.Result().Header.Get("Deprecation"))

	req, _ = http.NewRequest("GET", "/v1/queues", nil)
	response = executeTestRequest(t, req, "")
	assert.Empty(t, response.Result().Header.Get("Deprecation"))
}

func TestQueueCrudOverHTTP(t *testing.T) {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	username := "web_" + suffix

	// Register and log in.
	response := executeTestRequest(t, newJSONRequest(t, "POST", "/v1/users", map[string]string{
		"username":        username,
		"email":           username + "@example.com",
		"password":        "web-password-1",
		"confirmPassword": "web-password-1",
	}), "")
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())
	assert.NotEmpty(t, response.Result().Header.Get("Location"))

	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/auth/login", map[string]string{
		"username": username,
		"password": "web-password-1",
	}), "")
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, response, &login)
	require.NotEmpty(t, login.Token)

	// Create a queue.
	queueName := "q_" + suffix
	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/queues", map[string]string{
		"name":        queueName,
		"description": "created over http",
	}), login.Token)
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	var created struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		SnapshotNum    int64  `json:"snapshot"`
		LatestSnapshot bool   `json:"latestSnapshot"`
	}
	decodeBody(t, response, &created)
	assert.Equal(t, queueName, created.Name)
	assert.Equal(t, int64(1), created.SnapshotNum)
	assert.True(t, created.LatestSnapshot)

	// Read it back.
	req, _ := http.NewRequest("GET", "/v1/queues/"+created.ID, nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	// The collection page carries the envelope.
	req, _ = http.NewRequest("GET", "/v1/queues?search=name:"+queueName, nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	var page struct {
		TotalNumResults int  `json:"totalNumResults"`
		IsComplete      bool `json:"isComplete"`
		Data            []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	decodeBody(t, response, &page)
	require.Equal(t, 1, page.TotalNumResults)
	assert.True(t, page.IsComplete)
	require.Len(t, page.Data, 1)
	assert.Equal(t, queueName, page.Data[0].Name)

	// Rename appends a snapshot.
	response = executeTestRequest(t, newJSONRequest(t, "PUT", "/v1/queues/"+created.ID, map[string]string{
		"name":        queueName + "_renamed",
		"description": "renamed over http",
	}), login.Token)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	req, _ = http.NewRequest("GET", "/v1/queues/"+created.ID+"/snapshots", nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())
	decodeBody(t, response, &page)
	assert.Equal(t, 2, page.TotalNumResults)

	// Delete, then reads fail.
	req, _ = http.NewRequest("DELETE", "/v1/queues/"+created.ID, nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusNoContent, response.Code)

	req, _ = http.NewRequest("GET", "/v1/queues/"+created.ID, nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusNotFound, response.Code)
}

func TestResourceTagsOverHTTP(t *testing.T) {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	username := "tag_" + suffix

	response := executeTestRequest(t, newJSONRequest(t, "POST", "/v1/users", map[string]string{
		"username":        username,
		"email":           username + "@example.com",
		"password":        "tag-password-1",
		"confirmPassword": "tag-password-1",
	}), "")
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/auth/login", map[string]string{
		"username": username,
		"password": "tag-password-1",
	}), "")
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, response, &login)

	var queue, tag struct {
		ID string `json:"id"`
	}
	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/queues", map[string]string{
		"name": "q_tagged_" + suffix,
	}), login.Token)
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())
	decodeBody(t, response, &queue)

	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/tags", map[string]string{
		"name": "nightly_" + suffix,
	}), login.Token)
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())
	decodeBody(t, response, &tag)

	// Attach, then read the set back.
	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/queues/"+queue.ID+"/tags", map[string]any{
		"ids": []string{tag.ID},
	}), login.Token)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	req, _ := http.NewRequest("GET", "/v1/queues/"+queue.ID+"/tags", nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())
	var refs []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	decodeBody(t, response, &refs)
	require.Len(t, refs, 1)
	assert.Equal(t, tag.ID, refs[0].ID)
	assert.Equal(t, "nightly_"+suffix, refs[0].Name)

	// Detach; a second detach reports not found.
	req, _ = http.NewRequest("DELETE", "/v1/queues/"+queue.ID+"/tags/"+tag.ID, nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusNoContent, response.Code)

	req, _ = http.NewRequest("DELETE", "/v1/queues/"+queue.ID+"/tags/"+tag.ID, nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusNotFound, response.Code)

	// Tags are not themselves taggable.
	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/tags/"+tag.ID+"/tags", map[string]any{
		"ids": []string{tag.ID},
	}), login.Token)
	require.Equal(t, http.StatusNotFound, response.Code)
}

func TestPluginFileSearchOverHTTP(t *testing.T) {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	username := "pfs_" + suffix

	response := executeTestRequest(t, newJSONRequest(t, "POST", "/v1/users", map[string]string{
		"username":        username,
		"email":           username + "@example.com",
		"password":        "pfs-password-1",
		"confirmPassword": "pfs-password-1",
	}), "")
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/auth/login", map[string]string{
		"username": username,
		"password": "pfs-password-1",
	}), "")
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, response, &login)

	// Plugin files declare no searchable fields.
	req, _ := http.NewRequest("GET", "/v1/plugins/"+uuid.New().String()+"/files?search=name:main", nil)
	response = executeTestRequest(t, req, login.Token)
	assert.Equal(t, http.StatusNotImplemented, response.Code, response.Body.String())
}

func TestCurrentUserOverHTTP(t *testing.T) {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	username := "cur_" + suffix

	response := executeTestRequest(t, newJSONRequest(t, "POST", "/v1/users", map[string]string{
		"username":        username,
		"email":           username + "@example.com",
		"password":        "cur-password-1",
		"confirmPassword": "cur-password-1",
	}), "")
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/auth/login", map[string]string{
		"username": username,
		"password": "cur-password-1",
	}), "")
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, response, &login)

	req, _ := http.NewRequest("GET", "/v1/users/current", nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())
	var user struct {
		Username string `json:"username"`
	}
	decodeBody(t, response, &user)
	assert.Equal(t, username, user.Username)

	// Changing the password kills the session token.
	response = executeTestRequest(t, newJSONRequest(t, "POST", "/v1/users/current/password", map[string]string{
		"oldPassword":        "cur-password-1",
		"newPassword":        "cur-password-2",
		"confirmNewPassword": "cur-password-2",
	}), login.Token)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	req, _ = http.NewRequest("GET", "/v1/users/current", nil)
	response = executeTestRequest(t, req, login.Token)
	require.Equal(t, http.StatusUnauthorized, response.Code)
}
