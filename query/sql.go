package query

import (
	"context"
	"database/sql"
	"errors"
)

// SQL runs probe queries against database/sql handles. The caller owns the
// handles: SQL never closes them.
type SQL struct {
	def   *sql.DB
	named map[string]*sql.DB
}

var _ Executor = (*SQL)(nil)

// NewSQL builds an executor with def as the default connection. def may be
// nil when every dependency names its connection explicitly.
func NewSQL(def *sql.DB) *SQL {
	return &SQL{def: def, named: make(map[string]*sql.DB)}
}

// Register adds (or replaces) a named connection. Not safe to call
// concurrently with Scalar; register everything during setup.
func (s *SQL) Register(name string, db *sql.DB) *SQL {
	s.named[name] = db
	return s
}

func (s *SQL) Scalar(ctx context.Context, connection, q string, args []any) (any, error) {
	db, err := s.pick(connection)
	if err != nil {
		return nil, &ExecError{Connection: connection, Query: q, Err: err}
	}

	var v any
	err = db.QueryRowContext(ctx, q, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // no rows is an observation, not an error
	}
	if err != nil {
		return nil, &ExecError{Connection: connection, Query: q, Err: err}
	}
	return v, nil
}

func (s *SQL) pick(connection string) (*sql.DB, error) {
	if connection == "" {
		if s.def == nil {
			return nil, ErrNoDefaultConnection
		}
		return s.def, nil
	}
	db, ok := s.named[connection]
	if !ok {
		return nil, ErrUnknownConnection
	}
	return db, nil
}
