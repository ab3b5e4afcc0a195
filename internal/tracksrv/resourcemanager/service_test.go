package resourcemanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

func TestQueueLifecycle(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	created, apperr := CreateResource(ctx, trackcommon.ResourceTypeQueue, &ResourceInput{
		GroupID:     groupID,
		Name:        "tensorflow_cpu",
		Description: "queue for cpu workers",
	})
	require.Nil(t, apperr)
	assert.Equal(t, "tensorflow_cpu", created.Name)
	assert.Equal(t, int64(1), created.SnapshotNum)
	assert.True(t, created.LatestSnapshot)
	assert.Equal(t, groupID, created.GroupID)

	got, apperr := GetResource(ctx, trackcommon.ResourceTypeQueue, created.ID)
	require.Nil(t, apperr)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.SnapshotID, got.SnapshotID)
	assert.Equal(t, "queue for cpu workers", got.Description)

	// Duplicate name in the same group collides.
	_, apperr = CreateResource(ctx, trackcommon.ResourceTypeQueue, &ResourceInput{
		GroupID: groupID,
		Name:    "tensorflow_cpu",
	})
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrAlreadyExists)

	modified, apperr := ModifyResource(ctx, trackcommon.ResourceTypeQueue, created.ID, &ResourceInput{
		GroupID:     groupID,
		Name:        "tensorflow_gpu",
		Description: "queue for gpu workers",
	})
	require.Nil(t, apperr)
	assert.Equal(t, "tensorflow_gpu", modified.Name)
	assert.Equal(t, int64(2), modified.SnapshotNum)
	assert.NotEqual(t, created.SnapshotID, modified.SnapshotID)

	// History keeps both snapshots; the first is unchanged and no longer latest.
	history, apperr := ListSnapshots(ctx, trackcommon.ResourceTypeQueue, created.ID, 0, 10)
	require.Nil(t, apperr)
	assert.Equal(t, 2, history.Total)
	require.Len(t, history.Snapshots, 2)
	assert.Equal(t, "tensorflow_cpu", history.Snapshots[0].Name)
	assert.False(t, history.Snapshots[0].LatestSnapshot)
	assert.Equal(t, "tensorflow_gpu", history.Snapshots[1].Name)
	assert.True(t, history.Snapshots[1].LatestSnapshot)

	first, apperr := GetSnapshot(ctx, trackcommon.ResourceTypeQueue, created.ID, created.SnapshotID)
	require.Nil(t, apperr)
	assert.Equal(t, "tensorflow_cpu", first.Name)

	require.Nil(t, DeleteResource(ctx, trackcommon.ResourceTypeQueue, created.ID))

	_, apperr = GetResource(ctx, trackcommon.ResourceTypeQueue, created.ID)
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrResourceNotFound)

	// Deleting again is not found; history stays readable.
	apperr = DeleteResource(ctx, trackcommon.ResourceTypeQueue, created.ID)
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrResourceNotFound)

	history, apperr = ListSnapshots(ctx, trackcommon.ResourceTypeQueue, created.ID, 0, 10)
	require.Nil(t, apperr)
	assert.Equal(t, 2, history.Total)
	assert.False(t, history.Snapshots[1].LatestSnapshot)

	// The name is reusable after deletion.
	_, apperr = CreateResource(ctx, trackcommon.ResourceTypeQueue, &ResourceInput{
		GroupID: groupID,
		Name:    "tensorflow_cpu",
	})
	require.Nil(t, apperr)
}

func TestListResourcesSearch(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	for _, name := range []string{"mnist_baseline", "mnist_tuned", "imagenet_full"} {
		_, apperr := CreateResource(ctx, trackcommon.ResourceTypeExperiment, &ResourceInput{
			GroupID:     groupID,
			Name:        name,
			Description: "search fixture",
		})
		require.Nil(t, apperr)
	}

	result, apperr := ListResources(ctx, trackcommon.ResourceTypeExperiment, &ListQuery{
		GroupID: groupID,
		Search:  "name:mnist*",
		Limit:   10,
	})
	require.Nil(t, apperr)
	assert.Equal(t, 2, result.Total)

	result, apperr = ListResources(ctx, trackcommon.ResourceTypeExperiment, &ListQuery{
		GroupID: groupID,
		Search:  "imagenet",
		Limit:   10,
	})
	require.Nil(t, apperr)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Resources, 1)
	assert.Equal(t, "imagenet_full", result.Resources[0].Name)

	// Paging respects offset and limit while the total covers the filter.
	result, apperr = ListResources(ctx, trackcommon.ResourceTypeExperiment, &ListQuery{
		GroupID: groupID,
		Offset:  1,
		Limit:   1,
	})
	require.Nil(t, apperr)
	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Resources, 1)
}

func TestPluginFiles(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	plugin, apperr := CreateResource(ctx, trackcommon.ResourceTypePlugin, &ResourceInput{
		GroupID: groupID,
		Name:    "augmentation",
	})
	require.Nil(t, apperr)

	source := "def rotate(image, degrees):\n    ...\n"
	file, apperr := CreateResource(ctx, trackcommon.ResourceTypePluginFile, &ResourceInput{
		GroupID:  groupID,
		ParentID: plugin.ID,
		Name:     "rotate.py",
		Details:  map[string]any{"contents": source},
	})
	require.Nil(t, apperr)
	require.NotNil(t, file.ParentID)
	assert.Equal(t, plugin.ID, *file.ParentID)

	// Stored contents survive the compress/encode round trip.
	got, apperr := GetResource(ctx, trackcommon.ResourceTypePluginFile, file.ID)
	require.Nil(t, apperr)
	text, apperr := PluginFileContents(got)
	require.Nil(t, apperr)
	assert.Equal(t, source, text)

	// A file requires a live parent plugin.
	_, apperr = CreateResource(ctx, trackcommon.ResourceTypePluginFile, &ResourceInput{
		GroupID:  groupID,
		ParentID: uuid.New(),
		Name:     "orphan.py",
	})
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrParentNotFound)

	_, apperr = CreateResource(ctx, trackcommon.ResourceTypePluginFile, &ResourceInput{
		GroupID: groupID,
		Name:    "parentless.py",
	})
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrInvalidInput)

	// The same file name may exist under a different plugin.
	other, apperr := CreateResource(ctx, trackcommon.ResourceTypePlugin, &ResourceInput{
		GroupID: groupID,
		Name:    "preprocessing",
	})
	require.Nil(t, apperr)
	_, apperr = CreateResource(ctx, trackcommon.ResourceTypePluginFile, &ResourceInput{
		GroupID:  groupID,
		ParentID: other.ID,
		Name:     "rotate.py",
	})
	require.Nil(t, apperr)

	// Deleting the plugin cascades to its files.
	require.Nil(t, DeleteResource(ctx, trackcommon.ResourceTypePlugin, plugin.ID))
	_, apperr = GetResource(ctx, trackcommon.ResourceTypePluginFile, file.ID)
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrResourceNotFound)
}

func TestParameterTypeSnapshotImmutability(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	structure := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"layers": map[string]any{"type": "integer"},
		},
	}
	created, apperr := CreateResource(ctx, trackcommon.ResourceTypePluginParameterType, &ResourceInput{
		GroupID: groupID,
		Name:    "model_architecture",
		Details: map[string]any{"structure": structure},
	})
	require.Nil(t, apperr)

	_, apperr = ModifyResource(ctx, trackcommon.ResourceTypePluginParameterType, created.ID, &ResourceInput{
		GroupID: groupID,
		Name:    "changed_name",
		Details: map[string]any{"structure": structure},
	})
	require.Nil(t, apperr)

	// The original snapshot still carries the original name and structure.
	snap, apperr := GetSnapshot(ctx, trackcommon.ResourceTypePluginParameterType, created.ID, created.SnapshotID)
	require.Nil(t, apperr)
	assert.Equal(t, "model_architecture", snap.Name)
	assert.NotNil(t, snap.Details["structure"])
	assert.False(t, snap.LatestSnapshot)

	current, apperr := GetResource(ctx, trackcommon.ResourceTypePluginParameterType, created.ID)
	require.Nil(t, apperr)
	assert.Equal(t, "changed_name", current.Name)
}

func TestDrafts(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	draft, apperr := CreateDraft(ctx, trackcommon.ResourceTypeQueue, groupID,
		[]byte(`{"name": "staging_queue", "description": "not yet live"}`))
	require.Nil(t, apperr)
	assert.Nil(t, draft.TargetResourceID)
	assert.Equal(t, "staging_queue", draft.Payload["name"])

	got, apperr := GetDraft(ctx, draft.ID)
	require.Nil(t, apperr)
	assert.Equal(t, draft.ID, got.ID)

	updated, apperr := ModifyDraft(ctx, draft.ID, []byte(`{"name": "renamed_queue"}`))
	require.Nil(t, apperr)
	assert.Equal(t, "renamed_queue", updated.Payload["name"])

	_, apperr = ModifyDraft(ctx, draft.ID, []byte(`{"description": "nameless"}`))
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrInvalidDraftPayload)

	listed, apperr := ListDrafts(ctx, trackcommon.ResourceTypeQueue, 0, 10, false)
	require.Nil(t, apperr)
	assert.Equal(t, 1, listed.Total)

	require.Nil(t, DeleteDraft(ctx, draft.ID))
	_, apperr = GetDraft(ctx, draft.ID)
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrDraftNotFound)
}

func TestResourceDrafts(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	queue, apperr := CreateResource(ctx, trackcommon.ResourceTypeQueue, &ResourceInput{
		GroupID: groupID,
		Name:    "draft_target",
	})
	require.Nil(t, apperr)

	draft, apperr := CreateDraftForResource(ctx, trackcommon.ResourceTypeQueue, queue.ID,
		[]byte(`{"name": "draft_target", "description": "pending edit"}`))
	require.Nil(t, apperr)
	require.NotNil(t, draft.TargetResourceID)
	assert.Equal(t, queue.ID, *draft.TargetResourceID)
	require.NotNil(t, draft.TargetSnapshotID)
	assert.Equal(t, queue.SnapshotID, *draft.TargetSnapshotID)

	// One modification draft per user and resource.
	_, apperr = CreateDraftForResource(ctx, trackcommon.ResourceTypeQueue, queue.ID,
		[]byte(`{"name": "second"}`))
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrDraftAlreadyExists)

	got, apperr := GetDraftForResource(ctx, trackcommon.ResourceTypeQueue, queue.ID)
	require.Nil(t, apperr)
	assert.Equal(t, draft.ID, got.ID)

	// Another user does not see this draft.
	otherCtx, _ := newTestPrincipal(t, ctx)
	_, apperr = GetDraftForResource(otherCtx, trackcommon.ResourceTypeQueue, queue.ID)
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrDraftNotFound)

	require.Nil(t, DeleteDraft(ctx, draft.ID))
}
