package resourcemanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

func TestResourceTags(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	experiment, apperr := CreateResource(ctx, trackcommon.ResourceTypeExperiment, &ResourceInput{
		GroupID: groupID,
		Name:    "mnist_augmented",
	})
	require.Nil(t, apperr)

	nightly, apperr := CreateResource(ctx, trackcommon.ResourceTypeTag, &ResourceInput{
		GroupID: groupID,
		Name:    "nightly",
	})
	require.Nil(t, apperr)
	baseline, apperr := CreateResource(ctx, trackcommon.ResourceTypeTag, &ResourceInput{
		GroupID: groupID,
		Name:    "baseline",
	})
	require.Nil(t, apperr)

	// A fresh resource carries no tags.
	tags, apperr := ListResourceTags(ctx, trackcommon.ResourceTypeExperiment, experiment.ID)
	require.Nil(t, apperr)
	assert.Empty(t, tags)

	// Append returns the updated set, sorted by name.
	tags, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypeExperiment, experiment.ID,
		[]uuid.UUID{nightly.ID, baseline.ID})
	require.Nil(t, apperr)
	require.Len(t, tags, 2)
	assert.Equal(t, "baseline", tags[0].Name)
	assert.Equal(t, "nightly", tags[1].Name)

	// Re-appending an attached tag is a no-op.
	tags, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypeExperiment, experiment.ID,
		[]uuid.UUID{nightly.ID})
	require.Nil(t, apperr)
	assert.Len(t, tags, 2)

	// Replace swaps the whole set.
	tags, apperr = ReplaceResourceTags(ctx, trackcommon.ResourceTypeExperiment, experiment.ID,
		[]uuid.UUID{baseline.ID})
	require.Nil(t, apperr)
	require.Len(t, tags, 1)
	assert.Equal(t, baseline.ID, tags[0].ID)

	// Detach one tag; detaching again fails with not found.
	require.Nil(t, RemoveResourceTag(ctx, trackcommon.ResourceTypeExperiment, experiment.ID, baseline.ID))
	apperr = RemoveResourceTag(ctx, trackcommon.ResourceTypeExperiment, experiment.ID, baseline.ID)
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrResourceNotFound)

	// Clear is idempotent.
	tags, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypeExperiment, experiment.ID,
		[]uuid.UUID{nightly.ID, baseline.ID})
	require.Nil(t, apperr)
	require.Len(t, tags, 2)
	require.Nil(t, RemoveAllResourceTags(ctx, trackcommon.ResourceTypeExperiment, experiment.ID))
	require.Nil(t, RemoveAllResourceTags(ctx, trackcommon.ResourceTypeExperiment, experiment.ID))
	tags, apperr = ListResourceTags(ctx, trackcommon.ResourceTypeExperiment, experiment.ID)
	require.Nil(t, apperr)
	assert.Empty(t, tags)
}

func TestResourceTagsValidation(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	queue, apperr := CreateResource(ctx, trackcommon.ResourceTypeQueue, &ResourceInput{
		GroupID: groupID,
		Name:    "tagged_queue",
	})
	require.Nil(t, apperr)
	tag, apperr := CreateResource(ctx, trackcommon.ResourceTypeTag, &ResourceInput{
		GroupID: groupID,
		Name:    "release",
	})
	require.Nil(t, apperr)

	// Attaching requires at least one id.
	_, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypeQueue, queue.ID, nil)
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrInvalidInput)

	// Every id must name a live tag.
	_, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypeQueue, queue.ID,
		[]uuid.UUID{uuid.New()})
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrResourceNotFound)

	// A non-tag resource cannot stand in for a tag.
	_, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypeQueue, queue.ID,
		[]uuid.UUID{queue.ID})
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrResourceNotFound)

	// The target must be a live resource.
	_, apperr = ListResourceTags(ctx, trackcommon.ResourceTypeQueue, uuid.New())
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrResourceNotFound)

	// Tags themselves are not taggable.
	_, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypeTag, tag.ID,
		[]uuid.UUID{tag.ID})
	require.NotNil(t, apperr)
	assert.ErrorIs(t, apperr, ErrInvalidInput)
}

func TestResourceTagsSurviveTagDeletion(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	plugin, apperr := CreateResource(ctx, trackcommon.ResourceTypePlugin, &ResourceInput{
		GroupID: groupID,
		Name:    "image_augmentation",
	})
	require.Nil(t, apperr)
	tag, apperr := CreateResource(ctx, trackcommon.ResourceTypeTag, &ResourceInput{
		GroupID: groupID,
		Name:    "deprecated_tag",
	})
	require.Nil(t, apperr)

	_, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypePlugin, plugin.ID,
		[]uuid.UUID{tag.ID})
	require.Nil(t, apperr)

	// A deleted tag drops out of the resource's tag list.
	require.Nil(t, DeleteResource(ctx, trackcommon.ResourceTypeTag, tag.ID))
	tags, apperr := ListResourceTags(ctx, trackcommon.ResourceTypePlugin, plugin.ID)
	require.Nil(t, apperr)
	assert.Empty(t, tags)
}

func TestResourceTagRename(t *testing.T) {
	ctx := newDb(t)
	defer db.DB(ctx).Close(ctx)
	ctx, groupID := newTestPrincipal(t, ctx)

	queue, apperr := CreateResource(ctx, trackcommon.ResourceTypeQueue, &ResourceInput{
		GroupID: groupID,
		Name:    "rename_queue",
	})
	require.Nil(t, apperr)
	tag, apperr := CreateResource(ctx, trackcommon.ResourceTypeTag, &ResourceInput{
		GroupID: groupID,
		Name:    "v1_tag",
	})
	require.Nil(t, apperr)

	_, apperr = AppendResourceTags(ctx, trackcommon.ResourceTypeQueue, queue.ID,
		[]uuid.UUID{tag.ID})
	require.Nil(t, apperr)

	// Renaming a tag shows up in every attached resource's list.
	_, apperr = ModifyResource(ctx, trackcommon.ResourceTypeTag, tag.ID, &ResourceInput{
		GroupID: groupID,
		Name:    "v2_tag",
	})
	require.Nil(t, apperr)

	tags, apperr := ListResourceTags(ctx, trackcommon.ResourceTypeQueue, queue.ID)
	require.Nil(t, apperr)
	require.Len(t, tags, 1)
	assert.Equal(t, "v2_tag", tags[0].Name)
}
