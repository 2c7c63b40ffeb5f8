package depcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/depcache/codec"
	"github.com/unkn0wn-root/depcache/dep"
	"github.com/unkn0wn-root/depcache/internal/util"
	"github.com/unkn0wn-root/depcache/internal/wire"
	"github.com/unkn0wn-root/depcache/lock"
	"github.com/unkn0wn-root/depcache/query"
	"github.com/unkn0wn-root/depcache/store"
	"github.com/unkn0wn-root/depcache/tagstore"
)

const (
	defaultTTL      = 10 * time.Minute
	defaultTagTTL   = 30 * 24 * time.Hour
	defaultLockWait = 5 * time.Second
)

type cache[V any] struct {
	ns             string
	store          store.Store
	codec          codec.Codec[V]
	queries        query.Executor
	tags           *tagstore.Store
	log            Logger
	hooks          Hooks
	enabled        bool
	defaultTTL     time.Duration
	allowBaseFail  bool
	depcfg         dep.Config
	computeSetCost SetCostFunc
}

var _ dep.Env = (*cache[struct{}])(nil)

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("depcache: store is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("depcache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("depcache: namespace is required")
	}

	c := &cache[V]{
		ns:            opts.Namespace,
		store:         opts.Store,
		codec:         opts.Codec,
		queries:       opts.Queries,
		enabled:       !opts.Disabled,
		allowBaseFail: opts.AllowBaselineFailure,
		depcfg: dep.Config{
			GlobalFailOpen: opts.FailOpen,
			QueryFailOpen:  opts.QueryFailOpen,
		},
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)

	locks := opts.Locks
	if locks == nil {
		locks = lock.NewLocal()
	}
	c.tags = tagstore.New(
		opts.Store,
		locks,
		opts.Namespace,
		coalesce(opts.TagVersionTTL, defaultTagTTL),
		coalesce(opts.LockWait, defaultLockWait),
	)

	if opts.ComputeSetCost != nil {
		c.computeSetCost = opts.ComputeSetCost
	} else {
		c.computeSetCost = func(_ string, _ []byte) int64 { return 1 }
	}

	return c, nil
}

func (c *cache[V]) Enabled() bool { return c.enabled }

func (c *cache[V]) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

// ==== builders ====

func (c *cache[V]) Tags(names ...string) *Builder[V] {
	return newBuilder(c).Tags(names...)
}

func (c *cache[V]) DB(q string, args ...any) *Builder[V] {
	return newBuilder(c).DB(q, args...)
}

func (c *cache[V]) DBOn(connection, q string, args ...any) *Builder[V] {
	return newBuilder(c).DBOn(connection, q, args...)
}

// ==== reads ====

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !c.enabled {
		return zero, false, nil
	}
	k := c.entryKey(key)
	raw, ok, err := c.store.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}

	e, err := wire.DecodeEntry(raw)
	if errors.Is(err, wire.ErrNotEntry) {
		// plain value written to this key through the backend directly;
		// no recorded dependencies, return it as-is
		v, derr := c.codec.Decode(raw)
		if derr != nil {
			_ = c.store.Delete(ctx, k) // self-heal unreadable foreign bytes
			c.hooks.EntryEvicted(k, "value_decode")
			return zero, false, nil
		}
		return v, true, nil
	}
	if err != nil {
		_ = c.store.Delete(ctx, k) // self-heal corrupt
		c.hooks.EntryEvicted(k, "corrupt")
		return zero, false, nil
	}

	if c.entryStale(ctx, k, e.Deps) {
		_ = c.store.Delete(ctx, k)
		c.hooks.EntryEvicted(k, "stale")
		return zero, false, nil
	}

	v, err := c.codec.Decode(e.Payload)
	if err != nil {
		_ = c.store.Delete(ctx, k) // self-heal
		c.hooks.EntryEvicted(k, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

// Has reports staleness-checked existence: true only for entries Get would
// return.
func (c *cache[V]) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

// Pull is Get plus Forget on hit. When the value was read but the delete
// failed, the value is returned together with the delete error.
func (c *cache[V]) Pull(ctx context.Context, key string) (V, bool, error) {
	v, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	return v, true, c.Forget(ctx, key)
}

// Many reads every key, deduplicated, each through the full staleness check.
// Keys that miss (or read as stale) land in missing; store errors are joined
// into err with the affected keys counted missing.
func (c *cache[V]) Many(ctx context.Context, keys []string) (map[string]V, []string, error) {
	out := make(map[string]V, len(keys))
	if !c.enabled {
		return out, append([]string(nil), keys...), nil
	}

	var (
		missing []string
		errs    []error
	)
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		v, ok, err := c.Get(ctx, k)
		if err != nil {
			errs = append(errs, fmt.Errorf("get %q: %w", k, err))
			missing = append(missing, k)
			continue
		}
		if !ok {
			missing = append(missing, k)
			continue
		}
		out[k] = v
	}
	return out, missing, errors.Join(errs...)
}

// ==== dependency-free writes ====

func (c *cache[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	return newBuilder(c).Put(ctx, key, value, ttl)
}

func (c *cache[V]) Forever(ctx context.Context, key string, value V) error {
	return newBuilder(c).Forever(ctx, key, value)
}

func (c *cache[V]) PutMany(ctx context.Context, items map[string]V, ttl time.Duration) error {
	return newBuilder(c).PutMany(ctx, items, ttl)
}

func (c *cache[V]) Remember(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (V, error)) (V, error) {
	return newBuilder(c).Remember(ctx, key, ttl, producer)
}

// ==== removal ====

func (c *cache[V]) Forget(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	return c.store.Delete(ctx, c.entryKey(key))
}

// Flush wipes the backend store, tag version counters included. Counters
// restart at 0, which reads as "never invalidated"; that is consistent
// because every entry referencing them is wiped too.
func (c *cache[V]) Flush(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.store.Flush(ctx)
}

// ==== tag invalidation ====

// InvalidateTags bumps each tag's version counter. A lock timeout on the
// fallback path drops that one tag's bump (logged, hooked, not returned);
// other failures are joined into the returned error. Tags after a failed one
// are still processed.
func (c *cache[V]) InvalidateTags(ctx context.Context, tags ...string) error {
	if !c.enabled {
		return nil
	}
	var errs []error
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		v, err := c.tags.Bump(ctx, tag)
		if err != nil {
			if errors.Is(err, lock.ErrTimeout) {
				c.log.Warn("tag invalidation lost (lock timeout)", Fields{"tag": tag})
				c.hooks.LockTimeout(tag)
				continue
			}
			errs = append(errs, &InvalidateError{Tag: tag, Err: err})
			continue
		}
		c.hooks.TagInvalidated(tag, v)
		c.log.Debug("tag invalidated", Fields{"tag": tag, "version": v})
	}
	return errors.Join(errs...)
}

func (c *cache[V]) TagVersion(ctx context.Context, tag string) (uint64, error) {
	if !c.enabled {
		return 0, nil
	}
	return c.tags.Version(ctx, tag)
}

// QueryScalar implements dep.Env over the configured executor.
func (c *cache[V]) QueryScalar(ctx context.Context, connection, q string, args []any) (any, error) {
	if c.queries == nil {
		return nil, ErrNoQueryExecutor
	}
	return c.queries.Scalar(ctx, connection, q, args)
}

func (c *cache[V]) entryKey(userKey string) string {
	return util.EntryKey(c.ns, userKey)
}
