package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evalforge/evalforge/internal/common/httpx"
	"github.com/evalforge/evalforge/internal/tracksrv/auth"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// responseHandlerParam binds one method and path to a handler.
type responseHandlerParam struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

// resourceCollections maps collection mount points to resource kinds. Plugin
// files nest under their plugin.
var resourceCollections = []struct {
	Path string
	Kind trackcommon.ResourceType
}{
	{"/queues", trackcommon.ResourceTypeQueue},
	{"/experiments", trackcommon.ResourceTypeExperiment},
	{"/plugins", trackcommon.ResourceTypePlugin},
	{"/plugins/{pluginId}/files", trackcommon.ResourceTypePluginFile},
	{"/pluginParameterTypes", trackcommon.ResourceTypePluginParameterType},
	{"/tags", trackcommon.ResourceTypeTag},
}

// resourceHandlers builds the route table for one resource collection: CRUD,
// snapshot history, both draft surfaces, and the tag sub-resource for
// taggable kinds.
func resourceHandlers(base string, kind trackcommon.ResourceType) []responseHandlerParam {
	handlers := []responseHandlerParam{
		{http.MethodGet, base, listResources(kind)},
		{http.MethodPost, base, createResource(kind)},
		{http.MethodGet, base + "/drafts", listDrafts(kind)},
		{http.MethodPost, base + "/drafts", createDraft(kind)},
		{http.MethodGet, base + "/drafts/{draftId}", getDraft},
		{http.MethodPut, base + "/drafts/{draftId}", updateDraft},
		{http.MethodDelete, base + "/drafts/{draftId}", deleteDraft},
		{http.MethodGet, base + "/{id}", getResource(kind)},
		{http.MethodPut, base + "/{id}", updateResource(kind)},
		{http.MethodDelete, base + "/{id}", deleteResource(kind)},
		{http.MethodGet, base + "/{id}/snapshots", listSnapshots(kind)},
		{http.MethodGet, base + "/{id}/snapshots/{snapshotId}", getSnapshot(kind)},
		{http.MethodGet, base + "/{id}/draft", getResourceDraft(kind)},
		{http.MethodPost, base + "/{id}/draft", createResourceDraft(kind)},
		{http.MethodPut, base + "/{id}/draft", updateResourceDraft(kind)},
		{http.MethodDelete, base + "/{id}/draft", deleteResourceDraft(kind)},
	}
	if kind != trackcommon.ResourceTypeTag {
		handlers = append(handlers,
			responseHandlerParam{http.MethodGet, base + "/{id}/tags", getResourceTags(kind)},
			responseHandlerParam{http.MethodPost, base + "/{id}/tags", appendResourceTags(kind)},
			responseHandlerParam{http.MethodPut, base + "/{id}/tags", replaceResourceTags(kind)},
			responseHandlerParam{http.MethodDelete, base + "/{id}/tags", clearResourceTags(kind)},
			responseHandlerParam{http.MethodDelete, base + "/{id}/tags/{tagId}", removeResourceTag(kind)},
		)
	}
	return handlers
}

// publicHandlers need no session: registration and login.
var publicHandlers = []responseHandlerParam{
	{http.MethodPost, "/users", registerUser},
	{http.MethodPost, "/auth/login", login},
}

// accountHandlers operate on the authenticated principal and the account and
// group directories.
var accountHandlers = []responseHandlerParam{
	{http.MethodPost, "/auth/logout", logout},
	{http.MethodGet, "/users", listUsers},
	{http.MethodGet, "/users/current", getCurrentUser},
	{http.MethodPut, "/users/current", modifyCurrentUser},
	{http.MethodDelete, "/users/current", deleteCurrentUser},
	{http.MethodPost, "/users/current/password", changePassword},
	{http.MethodGet, "/users/{id}", getUser},
	{http.MethodGet, "/groups", listGroups},
	{http.MethodPost, "/groups", createGroup},
	{http.MethodGet, "/groups/{id}", getGroup},
	{http.MethodPost, "/groups/{id}/members", addGroupMember},
}

// Router registers all API endpoints on the given router. Registration and
// login are open; everything else requires a valid session token.
func Router(r chi.Router) chi.Router {
	r.Group(func(r chi.Router) {
		for _, handler := range publicHandlers {
			r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.UserAuthMiddleware)
		for _, handler := range accountHandlers {
			r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
		}
		for _, collection := range resourceCollections {
			for _, handler := range resourceHandlers(collection.Path, collection.Kind) {
				r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
			}
		}
	})

	return r
}
