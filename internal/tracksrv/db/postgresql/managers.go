// Package postgresql implements the database managers with raw SQL against
// PostgreSQL. Managers share a borrowed connection for the lifetime of a
// request; multi-statement mutations run inside explicit transactions.
package postgresql

import (
	"context"
	"database/sql"

	"github.com/evalforge/evalforge/internal/tracksrv/db/dbmanager"
)

// resourceManager handles resources, snapshots, and locks.
type resourceManager struct {
	c dbmanager.Conn
}

// draftManager handles draft staging rows.
type draftManager struct {
	c dbmanager.Conn
}

// principalManager handles users, groups, and memberships.
type principalManager struct {
	c dbmanager.Conn
}

// connectionManager exposes connection lifecycle operations.
type connectionManager struct {
	c dbmanager.Conn
}

func (m *resourceManager) conn() *sql.Conn  { return m.c.Conn() }
func (m *draftManager) conn() *sql.Conn     { return m.c.Conn() }
func (m *principalManager) conn() *sql.Conn { return m.c.Conn() }

// Close returns the borrowed connection to the pool.
func (m *connectionManager) Close(ctx context.Context) { m.c.Close(ctx) }

// NewTrackerDb wires the managers over one borrowed connection.
func NewTrackerDb(c dbmanager.Conn) (*resourceManager, *draftManager, *principalManager, *connectionManager) {
	return &resourceManager{c: c}, &draftManager{c: c}, &principalManager{c: c}, &connectionManager{c: c}
}
