package dep

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

func init() { Register(KindQuery, "query", decodeQuery) }

// Query makes an entry dependent on the scalar result of a probe query: the
// first column of the first row, or nil when the query returns no rows. The
// baseline records that scalar at write time; the entry is stale once a
// re-probe observes anything different, nil-to-value and value-to-nil
// transitions included.
//
// Probes should be cheap and deterministic relative to recomputing the
// cached value: MAX(updated_at), COUNT(*), a version column.
type Query struct {
	conn  string
	query string
	args  []any
}

var (
	_ Dependency = (*Query)(nil)
	_ TypePolicy = (*Query)(nil)
)

// NewQuery builds a probe against the executor's default connection.
func NewQuery(query string, args ...any) *Query {
	return &Query{query: query, args: args}
}

// NewQueryOn builds a probe against a named connection.
func NewQueryOn(connection, query string, args ...any) *Query {
	return &Query{conn: connection, query: query, args: args}
}

func (q *Query) Kind() byte { return KindQuery }

// Connection returns the named connection, "" for the default.
func (q *Query) Connection() string { return q.conn }

// Statement returns the probe query text.
func (q *Query) Statement() string { return q.query }

// Args returns the bound parameters. Callers must not mutate them.
func (q *Query) Args() []any { return q.args }

// TypeFailOpen exposes the query-specific fail-open flag.
func (q *Query) TypeFailOpen(cfg Config) (bool, bool) {
	return cfg.QueryFailOpen, true
}

type queryParams struct {
	Conn  string `msgpack:"conn"`
	Query string `msgpack:"query"`
	Args  []any  `msgpack:"args"`
}

// EncodeParams round-trips the probe identity. Argument types narrow to
// msgpack's decoded forms (ints come back as int64), which SQL drivers
// accept interchangeably.
func (q *Query) EncodeParams() ([]byte, error) {
	return msgpack.Marshal(queryParams{Conn: q.conn, Query: q.query, Args: q.args})
}

func decodeQuery(params []byte) (Dependency, error) {
	var p queryParams
	if err := msgpack.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("query params: %w", err)
	}
	return &Query{conn: p.Conn, query: p.Query, args: p.Args}, nil
}

// CaptureBaseline runs the probe and records its normalized scalar.
func (q *Query) CaptureBaseline(ctx context.Context, env Env) ([]byte, error) {
	v, err := env.QueryScalar(ctx, q.conn, q.query, q.args)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(normalizeScalar(v))
}

// Stale re-runs the probe and compares against the recorded scalar. A
// baseline that does not decode reads as fresh without probing.
func (q *Query) Stale(ctx context.Context, env Env, baseline []byte) (bool, error) {
	var stored scalarValue
	if err := msgpack.Unmarshal(baseline, &stored); err != nil {
		return false, nil
	}
	cur, err := env.QueryScalar(ctx, q.conn, q.query, q.args)
	if err != nil {
		return false, err
	}
	return !normalizeScalar(cur).equal(stored), nil
}
