package resourcemanager

import (
	"context"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// kindSpec declares the per-kind behavior of the generic resource service:
// which fields a search expression may reference, whether the kind nests under
// a parent, and how its details payload is validated and normalized.
type kindSpec struct {
	searchFields   []string
	parentType     trackcommon.ResourceType
	prepareDetails func(ctx context.Context, in *ResourceInput) apperrors.Error
}

var kindSpecs = map[trackcommon.ResourceType]kindSpec{
	trackcommon.ResourceTypeQueue: {
		searchFields: []string{"name", "description"},
	},
	trackcommon.ResourceTypeExperiment: {
		searchFields: []string{"name", "description"},
	},
	trackcommon.ResourceTypePlugin: {
		searchFields: []string{"name", "description"},
	},
	trackcommon.ResourceTypePluginFile: {
		// Plugin files declare no searchable fields; a search expression on
		// this kind fails with ErrSearchNotImplemented.
		parentType:     trackcommon.ResourceTypePlugin,
		prepareDetails: preparePluginFileDetails,
	},
	trackcommon.ResourceTypePluginParameterType: {
		searchFields:   []string{"name", "description"},
		prepareDetails: prepareParameterTypeDetails,
	},
	trackcommon.ResourceTypeTag: {
		searchFields: []string{"name"},
	},
}

func specForKind(kind trackcommon.ResourceType) (kindSpec, apperrors.Error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return kindSpec{}, ErrInvalidResourceType.Msg("unsupported resource type: " + string(kind))
	}
	return spec, nil
}
