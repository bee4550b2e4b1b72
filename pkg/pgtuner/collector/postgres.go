package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// DefaultConnectTimeout bounds connection setup when none is configured.
const DefaultConnectTimeout = 10 * time.Second

const (
	extensionQuery = `SELECT EXISTS (
	SELECT 1 FROM pg_extension WHERE extname = 'pg_stat_statements'
)`

	statementsQuery = `SELECT
	COALESCE(SUM(calls), 0)::float8,
	COALESCE(SUM(total_exec_time), 0)::float8,
	COALESCE(SUM(rows), 0)::float8,
	COALESCE(SUM(shared_blks_hit), 0)::float8,
	COALESCE(SUM(shared_blks_read), 0)::float8,
	COALESCE(SUM(shared_blks_dirtied), 0)::float8
FROM pg_stat_statements`

	activityQuery = `SELECT
	COUNT(*) FILTER (WHERE state = 'active')::float8,
	COUNT(*)::float8,
	COUNT(*) FILTER (WHERE wait_event_type = 'Lock')::float8,
	COALESCE(EXTRACT(EPOCH FROM now() - MIN(backend_start)), 0)::float8
FROM pg_stat_activity
WHERE backend_type = 'client backend'`

	databaseQuery = `SELECT
	COALESCE(SUM(temp_files), 0)::float8,
	COALESCE(SUM(temp_bytes), 0)::float8
FROM pg_stat_database`
)

// querier is the subset of *pgx.Conn used for collection.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn is a querier that can be closed.
type conn interface {
	querier
	Close(ctx context.Context) error
}

// connectFunc opens a connection. Tests replace it.
type connectFunc func(ctx context.Context, connString string) (conn, error)

func pgxConnect(ctx context.Context, connString string) (conn, error) {
	return pgx.Connect(ctx, connString)
}

// Postgres collects a sample from the statistics views of a live server.
// It requires the pg_stat_statements extension.
type Postgres struct {
	connString string
	timeout    time.Duration
	connect    connectFunc
}

var _ Source = (*Postgres)(nil)

// PostgresOption configures a Postgres source.
type PostgresOption func(*Postgres)

// WithConnectTimeout bounds how long connecting may take.
func WithConnectTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPostgres returns a source for the server at connString, which may be
// a URL or a keyword/value DSN.
func NewPostgres(connString string, opts ...PostgresOption) *Postgres {
	p := &Postgres{
		connString: connString,
		timeout:    DefaultConnectTimeout,
		connect:    pgxConnect,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Collect connects, reads the statistics views once and derives a sample.
// Failures wrap types.ErrMetricCollection together with either
// types.ErrSourceUnreachable or types.ErrCapabilityMissing.
func (p *Postgres) Collect(ctx context.Context) (types.MetricSample, error) {
	connectCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	c, err := p.connect(connectCtx, p.connString)
	if err != nil {
		return types.MetricSample{}, classify("connecting", err)
	}
	defer func() {
		if closeErr := c.Close(context.Background()); closeErr != nil {
			logger.Warn("closing connection", "error", closeErr)
		}
	}()

	logger.Debug("connected to data source")

	raw, err := readStats(ctx, c)
	if err != nil {
		return types.MetricSample{}, err
	}

	sample := Derive(raw)
	logger.Info("sample collected",
		"calls", raw.Calls,
		"backends", raw.TotalBackends,
		"metrics", sample.Len())
	return sample, nil
}

// readStats checks for pg_stat_statements and reads the three views.
func readStats(ctx context.Context, q querier) (RawStats, error) {
	var installed bool
	if err := q.QueryRow(ctx, extensionQuery).Scan(&installed); err != nil {
		return RawStats{}, classify("checking pg_stat_statements", err)
	}
	if !installed {
		return RawStats{}, fmt.Errorf("%w: %w: pg_stat_statements extension not installed",
			types.ErrMetricCollection, types.ErrCapabilityMissing)
	}

	var raw RawStats
	err := q.QueryRow(ctx, statementsQuery).Scan(
		&raw.Calls, &raw.TotalExecTime, &raw.Rows,
		&raw.BlocksHit, &raw.BlocksRead, &raw.BlocksDirtied)
	if err != nil {
		return RawStats{}, classify("reading pg_stat_statements", err)
	}

	err = q.QueryRow(ctx, activityQuery).Scan(
		&raw.ActiveBackends, &raw.TotalBackends, &raw.LockWaiters, &raw.OldestBackendAge)
	if err != nil {
		return RawStats{}, classify("reading pg_stat_activity", err)
	}

	if err := q.QueryRow(ctx, databaseQuery).Scan(&raw.TempFiles, &raw.TempBytes); err != nil {
		return RawStats{}, classify("reading pg_stat_database", err)
	}

	return raw, nil
}

// classify wraps err as a metric collection failure with its cause.
// Server errors other than connection and authorization failures mean the
// server is reachable but cannot answer the query: a missing view, column,
// function or extension, or a lack of privilege.
func classify(op string, err error) error {
	cause := types.ErrSourceUnreachable

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && !isConnectionCode(pgErr.Code) {
		cause = types.ErrCapabilityMissing
	}

	return fmt.Errorf("%w: %w: %s: %w", types.ErrMetricCollection, cause, op, err)
}

// isConnectionCode reports whether a server error code means the server
// refused or dropped the session.
func isConnectionCode(code string) bool {
	return pgerrcode.IsConnectionException(code) ||
		pgerrcode.IsInvalidAuthorizationSpecification(code) ||
		code == pgerrcode.InvalidPassword ||
		code == pgerrcode.TooManyConnections ||
		code == pgerrcode.CannotConnectNow ||
		code == pgerrcode.AdminShutdown ||
		code == pgerrcode.CrashShutdown
}
