// Package trackcommon provides shared types and context plumbing for the
// tracking service: resource kinds, permission bits, the authenticated user
// context, and password hashing helpers.
package trackcommon

// ResourceType discriminates the versionable resource kinds managed by the
// service. The values are stored in the resources table and must not change.
type ResourceType string

const (
	ResourceTypeQueue               ResourceType = "queue"
	ResourceTypeExperiment          ResourceType = "experiment"
	ResourceTypePlugin              ResourceType = "plugin"
	ResourceTypePluginFile          ResourceType = "plugin_file"
	ResourceTypePluginParameterType ResourceType = "plugin_parameter_type"
	ResourceTypeTag                 ResourceType = "tag"
)

// InvalidResourceType is returned by route resolution when the collection
// segment does not name a known kind.
const InvalidResourceType ResourceType = ""

// ResourceTypes lists all valid kinds.
var ResourceTypes = []ResourceType{
	ResourceTypeQueue,
	ResourceTypeExperiment,
	ResourceTypePlugin,
	ResourceTypePluginFile,
	ResourceTypePluginParameterType,
	ResourceTypeTag,
}

// IsValidResourceType reports whether t names a known kind.
func IsValidResourceType(t ResourceType) bool {
	for _, rt := range ResourceTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// LockTypeDelete is the lock kind recorded when a resource is soft-deleted.
const LockTypeDelete = "delete"

// PublicGroupName is the group created on first-user bootstrap. Every
// registered user is added to it with full permissions until finer-grained
// sharing is configured.
const PublicGroupName = "public"

// BuiltinParameterTypes are registered into the public group when the first
// user is created.
var BuiltinParameterTypes = []string{
	"string",
	"integer",
	"number",
	"boolean",
	"list",
	"mapping",
	"any",
}

// Server version information.
const (
	ServerVersion = "0.3.0"
	ApiVersion    = "v1"
)
