package depcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/depcache/codec"
	"github.com/unkn0wn-root/depcache/lock"
	"github.com/unkn0wn-root/depcache/query"
	st "github.com/unkn0wn-root/depcache/store"
)

// SetCostFunc sizes an encoded entry for cost-aware stores (Ristretto).
type SetCostFunc func(storageKey string, raw []byte) int64

// Cache is the dependency-tracking cache API. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
//
// Writes go through builders (Tags/DB/DBOn) when the entry should track
// dependencies, or directly through Put/Forever/PutMany/Remember when it
// should not. Reads re-evaluate the recorded dependencies and treat entries
// that cannot be proven fresh as misses.
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Builders. Each returns a single-commit builder bound to this cache.
	Tags(names ...string) *Builder[V]
	DB(query string, args ...any) *Builder[V]
	DBOn(connection, query string, args ...any) *Builder[V]

	// Reads. A hit is an entry that exists and passed its staleness checks;
	// everything else is a miss, stale entries are evicted on the way.
	Get(ctx context.Context, key string) (v V, ok bool, err error)
	Has(ctx context.Context, key string) (bool, error)
	Pull(ctx context.Context, key string) (v V, ok bool, err error)
	Many(ctx context.Context, keys []string) (values map[string]V, missing []string, err error)

	// Dependency-free writes. ttl == 0 means Options.DefaultTTL; Forever
	// stores without expiry.
	Put(ctx context.Context, key string, value V, ttl time.Duration) error
	Forever(ctx context.Context, key string, value V) error
	PutMany(ctx context.Context, items map[string]V, ttl time.Duration) error
	Remember(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (V, error)) (V, error)

	Forget(ctx context.Context, key string) error
	Flush(ctx context.Context) error

	// Tag invalidation. InvalidateTags bumps each tag's version counter;
	// entries recorded under older versions read as stale from then on.
	InvalidateTags(ctx context.Context, tags ...string) error
	TagVersion(ctx context.Context, tag string) (uint64, error)
}

// Options tune the generic dependency cache.
// Only Namespace, Store and Codec are required; others have defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "user", "catalog"
	Store     st.Store
	Codec     c.Codec[V]

	// Queries executes probe queries for DB dependencies. nil is fine for
	// caches that only use tags; DB dependencies then fail their captures
	// with ErrNoQueryExecutor.
	Queries query.Executor

	// Locks serializes fallback tag bumps on stores without atomic
	// increment. nil => in-process lock.NewLocal(); use a shared locker
	// (e.g. redislock) when replicas share such a store.
	Locks lock.Locker

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	DefaultTTL    time.Duration // entries; 0 => 10m
	TagVersionTTL time.Duration // tag counters; 0 => 30d, negative => never expire.
	// Must exceed the longest entry TTL: an expired counter resets to 0 and
	// reads as "never invalidated".
	LockWait time.Duration // fallback lock bound; 0 => 5s

	// FailOpen, when set, decides globally how failed staleness checks are
	// treated (true: keep checking, false: stale), overriding QueryFailOpen.
	// Unset => per-type flags, default fail closed.
	FailOpen *bool
	// QueryFailOpen applies to query dependencies only.
	QueryFailOpen bool

	// AllowBaselineFailure writes entries without the dependencies whose
	// baseline capture failed instead of failing the commit.
	AllowBaselineFailure bool

	Disabled       bool        // default false (enabled)
	ComputeSetCost SetCostFunc // default 1
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
