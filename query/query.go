// Package query executes the scalar probe queries that back query
// dependencies. A probe is expected to be cheap relative to recomputing the
// cached value: MAX(updated_at), COUNT(*), a version column, and similar.
package query

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoDefaultConnection means a query used the default connection but
	// the executor was built without one.
	ErrNoDefaultConnection = errors.New("query: no default connection configured")

	// ErrUnknownConnection means a query named a connection the executor
	// does not know about.
	ErrUnknownConnection = errors.New("query: unknown connection")
)

// Executor runs a probe query and returns its first column of the first row.
// A query yielding no rows returns (nil, nil): "no rows" is a comparable
// observation, not a failure. connection == "" selects the default.
type Executor interface {
	Scalar(ctx context.Context, connection, query string, args []any) (any, error)
}

// ExecError wraps any probe failure (bad connection name, SQL error,
// transport error) with the query that caused it.
type ExecError struct {
	Connection string
	Query      string
	Err        error
}

func (e *ExecError) Error() string {
	if e.Connection == "" {
		return fmt.Sprintf("query %q: %v", e.Query, e.Err)
	}
	return fmt.Sprintf("query %q on %q: %v", e.Query, e.Connection, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
