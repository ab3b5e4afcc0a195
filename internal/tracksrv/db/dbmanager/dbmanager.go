// Package dbmanager manages the PostgreSQL connection pool. Each request
// borrows a dedicated connection for its lifetime so that every service call
// observes consistent session settings.
package dbmanager

import (
	"context"
	"database/sql"
	"fmt"
)

// Pool is a pool of database connections.
type Pool interface {
	// Conn returns a connection from the pool.
	Conn(ctx context.Context) (Conn, error)
	// OpenConns returns the number of open connections in the pool.
	OpenConns() int
	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error
}

// Conn is a single borrowed database connection.
type Conn interface {
	// Conn returns the underlying connection.
	Conn() *sql.Conn
	// Close returns the connection to the pool.
	Close(ctx context.Context)
}

// NewPool creates a new connection pool for the named driver. Only
// "postgresql" is supported.
func NewPool(ctx context.Context, driver string) (Pool, error) {
	switch driver {
	case "postgresql":
		return newPostgresqlPool(ctx)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
