package depcache

import (
	"errors"
	"fmt"
)

// ErrNoQueryExecutor means a query dependency ran on a cache built without
// Options.Queries. Baseline captures fail the commit with it; staleness
// checks resolve it through the fail-open/closed policy.
var ErrNoQueryExecutor = errors.New("depcache: no query executor configured")

var errBuilderReused = errors.New("depcache: builder already committed")

// BaselineError wraps a dependency whose baseline could not be captured at
// write time. Unless baseline-failure tolerance is on, the commit that
// raised it was aborted and nothing was written.
type BaselineError struct {
	Kind string // dependency kind name, e.g. "tags", "query"
	Err  error
}

func (e *BaselineError) Error() string {
	return fmt.Sprintf("baseline capture (%s): %v", e.Kind, e.Err)
}

func (e *BaselineError) Unwrap() error { return e.Err }

// InvalidateError reports one tag whose version bump failed during
// InvalidateTags. Failures across several tags arrive joined; lock timeouts
// are not errors and never appear here (they are logged and the bump is
// dropped).
type InvalidateError struct {
	Tag string
	Err error
}

func (e *InvalidateError) Error() string {
	return fmt.Sprintf("invalidate tag %q: %v", e.Tag, e.Err)
}

func (e *InvalidateError) Unwrap() error { return e.Err }
