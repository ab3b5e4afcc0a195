package dbmanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/evalforge/evalforge/internal/tracksrv/config"
	"github.com/evalforge/evalforge/internal/tracksrv/db/migrations"
)

// postgresConn represents a borrowed connection to the PostgreSQL database.
type postgresConn struct {
	conn   *sql.Conn
	cancel context.CancelFunc
	pool   *postgresPool
}

// postgresPool represents a pool of PostgreSQL database connections.
type postgresPool struct {
	connRequests uint64
	connReturns  uint64
	db           *sql.DB
}

// Session parameters applied to every borrowed connection. Statement and lock
// timeouts bound how long a misbehaving query can hold resources.
var sessionParams = map[string]string{
	"lock_timeout":                        "5s",
	"statement_timeout":                   "5s",
	"idle_in_transaction_session_timeout": "5s",
}

// newPostgresqlPool creates the PostgreSQL connection pool and verifies
// connectivity. The initial ping is retried because the database may still be
// starting when the service comes up.
func newPostgresqlPool(ctx context.Context) (Pool, error) {
	dsn := config.TrackerDSN()

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to open db")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	err = retry.Do(
		func() error {
			return sqlDB.PingContext(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Uint("attempt", n).Err(err).Msg("db ping failed, retrying")
		}),
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to ping db")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &postgresPool{
		db: sqlDB,
	}, nil
}

// Migrate applies pending goose migrations from the embedded filesystem.
func (p *postgresPool) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, p.db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Conn returns a connection from the pool with session parameters applied.
func (p *postgresPool) Conn(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithCancel(ctx)

	conn, err := p.db.Conn(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to obtain connection")
		cancel()
		return nil, fmt.Errorf("failed to obtain database connection: %w", err)
	}

	for param, value := range sessionParams {
		query := fmt.Sprintf("SET %s = %s", pq.QuoteIdentifier(param), pq.QuoteLiteral(value))
		_, err = conn.ExecContext(ctx, query)
		if err != nil {
			cancel()
			conn.Close()
			return nil, fmt.Errorf("failed to set %s: %w", param, err)
		}
	}

	atomic.AddUint64(&p.connRequests, 1)
	return &postgresConn{
		conn:   conn,
		cancel: cancel,
		pool:   p,
	}, nil
}

// Stats returns the number of connection requests and returns.
func (p *postgresPool) Stats() (requests, returns uint64) {
	return atomic.LoadUint64(&p.connRequests), atomic.LoadUint64(&p.connReturns)
}

// OpenConns returns the number of open connections in the pool.
func (p *postgresPool) OpenConns() int {
	return p.db.Stats().OpenConnections
}

// Close returns the connection to the pool.
func (h *postgresConn) Close(ctx context.Context) {
	if h.conn == nil {
		return
	}
	h.conn.Close()
	if h.cancel != nil {
		h.cancel()
	}
	atomic.AddUint64(&h.pool.connReturns, 1)
}

// Conn returns the underlying connection.
func (h *postgresConn) Conn() *sql.Conn {
	return h.conn
}
