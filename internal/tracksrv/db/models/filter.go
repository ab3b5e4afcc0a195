package models

import (
	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
)

// SearchClause is one field:pattern term of a search expression. Pattern is
// already translated to SQL LIKE syntax (`%` wildcards) by the service layer;
// clauses combine with AND.
type SearchClause struct {
	Field   string
	Pattern string
}

// ResourceFilter selects a page of live resources.
type ResourceFilter struct {
	ResourceType trackcommon.ResourceType
	GroupID      uuid.UUID // uuid.Nil matches all groups
	ParentID     uuid.UUID // restrict to children of a resource (plugin files)
	Search       []SearchClause
	Offset       int
	Limit        int
}

// DraftFilter selects a page of drafts for one owner.
type DraftFilter struct {
	ResourceType trackcommon.ResourceType
	UserID       uuid.UUID
	Offset       int
	Limit        int
}
