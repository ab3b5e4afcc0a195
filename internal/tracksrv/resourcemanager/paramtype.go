package resourcemanager

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
)

// prepareParameterTypeDetails validates the optional structure field. A
// structure must be a JSON object that compiles as a JSON Schema; builtin
// types carry none.
func prepareParameterTypeDetails(_ context.Context, in *ResourceInput) apperrors.Error {
	if raw, ok := in.Details["structure"]; !ok || raw == nil {
		in.Details = nil
		return nil
	}
	var details models.PluginParameterTypeDetails
	if err := mapstructure.Decode(in.Details, &details); err != nil {
		return ErrInvalidStructure.Msg("structure must be a JSON object")
	}
	if err := compileStructure(details.Structure); err != nil {
		return err
	}
	in.Details = map[string]any{"structure": details.Structure}
	return nil
}

func compileStructure(structure map[string]any) apperrors.Error {
	encoded, err := json.Marshal(structure)
	if err != nil {
		return ErrInvalidStructure.Err(err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("structure.json", strings.NewReader(string(encoded))); err != nil {
		return ErrInvalidStructure.Err(err)
	}
	if _, err := compiler.Compile("structure.json"); err != nil {
		return ErrInvalidStructure.Err(err)
	}
	return nil
}
