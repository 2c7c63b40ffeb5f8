// Package dep defines the dependency abstraction behind depcache's staleness
// checks: a dependency captures a baseline of some external state at write
// time and later judges whether that state has moved past the baseline.
//
// Two kinds ship with the package: Tags (version-counter invalidation
// groups) and Query (scalar probe comparison). New kinds plug in through
// Register without touching the entry evaluation code.
package dep

import (
	"context"
	"fmt"
)

// Env is what dependencies see of the cache during baseline capture and
// staleness checks: tag version lookups and probe query execution. The root
// cache implements it.
type Env interface {
	TagVersion(ctx context.Context, tag string) (uint64, error)
	QueryScalar(ctx context.Context, connection, query string, args []any) (any, error)
}

// Dependency is one invalidation condition recorded with a cache entry.
//
// A Dependency is owned by a single builder until commit; after its baseline
// is captured it is immutable and shared read-only by every check.
type Dependency interface {
	// Kind identifies the concrete type on the wire. Never renumbered.
	Kind() byte

	// EncodeParams serializes the dependency's identity (not its baseline).
	EncodeParams() ([]byte, error)

	// CaptureBaseline observes the current state and returns it encoded.
	CaptureBaseline(ctx context.Context, env Env) ([]byte, error)

	// Stale reports whether current state moved past baseline. A malformed
	// baseline is not an error: it reads as fresh. Errors from the
	// environment (store, query layer) are returned for the caller's
	// fail-open/closed policy to resolve.
	Stale(ctx context.Context, env Env, baseline []byte) (bool, error)
}

// Wire kind bytes. Stored entries outlive releases; never renumber.
const (
	KindTags  byte = 1
	KindQuery byte = 2
)

// DecodeFunc rebuilds a dependency of one kind from its encoded params.
type DecodeFunc func(params []byte) (Dependency, error)

type registryEntry struct {
	name   string
	decode DecodeFunc
}

var registry = map[byte]registryEntry{}

// Register adds a dependency kind to the decode registry. Call from an init
// function. Registering a kind twice panics.
func Register(kind byte, name string, fn DecodeFunc) {
	if _, dup := registry[kind]; dup {
		panic(fmt.Sprintf("depcache: dependency kind %d already registered", kind))
	}
	registry[kind] = registryEntry{name: name, decode: fn}
}

// Decode rebuilds the dependency stored under kind. An unknown kind is an
// error; callers treat the containing entry as unusable.
func Decode(kind byte, params []byte) (Dependency, error) {
	e, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("depcache: unknown dependency kind %d", kind)
	}
	return e.decode(params)
}

// KindName returns a stable name for log fields: "tags", "query", or
// "kind(N)" for kinds this build does not know.
func KindName(kind byte) string {
	if e, ok := registry[kind]; ok {
		return e.name
	}
	return fmt.Sprintf("kind(%d)", kind)
}
