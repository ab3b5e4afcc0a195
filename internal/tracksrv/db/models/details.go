package models

// Typed shapes of the snapshot details column. Name and description are
// extracted into snapshot columns, so details carries only the kind-specific
// remainder. Queues, experiments, plugins, and tags have none.

// PluginFileDetails is the details payload of a plugin_file snapshot. Contents
// holds the source text snappy-compressed; JSON encoding base64s it.
type PluginFileDetails struct {
	Contents []byte `json:"contents" mapstructure:"contents"`
}

// PluginParameterTypeDetails is the details payload of a plugin_parameter_type
// snapshot. Structure is a JSON Schema fragment describing the type's shape;
// builtin types carry none.
type PluginParameterTypeDetails struct {
	Structure map[string]any `json:"structure,omitempty" mapstructure:"structure"`
}
