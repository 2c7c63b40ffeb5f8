package depcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/depcache/dep"
	"github.com/unkn0wn-root/depcache/internal/wire"
	"github.com/unkn0wn-root/depcache/store"
)

// Builder accumulates the dependencies for one commit. Repeated Tags calls
// merge into a single tag dependency; each DB/DBOn call appends an
// independent query dependency, any one of which going stale invalidates the
// whole entry. Baselines are captured at commit time (Put, Forever, PutMany,
// Remember), and a builder commits at most once: further commits return an
// error and further Tags/DB calls are no-ops.
//
// Builders are not safe for concurrent use.
type Builder[V any] struct {
	c      *cache[V]
	deps   []dep.Dependency
	tagDep *dep.Tags
	done   bool
}

func newBuilder[V any](c *cache[V]) *Builder[V] { return &Builder[V]{c: c} }

// Tags merges names into the builder's tag dependency, creating it on first
// use. Empty names are dropped; duplicates collapse.
func (b *Builder[V]) Tags(names ...string) *Builder[V] {
	if b.done {
		return b
	}
	if b.tagDep != nil {
		b.tagDep.Add(names...)
		return b
	}
	t := dep.NewTags(names...)
	if len(t.Names()) == 0 {
		return b
	}
	b.tagDep = t
	b.deps = append(b.deps, t)
	return b
}

// DB appends a probe dependency on the executor's default connection.
func (b *Builder[V]) DB(query string, args ...any) *Builder[V] {
	if b.done {
		return b
	}
	b.deps = append(b.deps, dep.NewQuery(query, args...))
	return b
}

// DBOn appends a probe dependency on a named connection.
func (b *Builder[V]) DBOn(connection, query string, args ...any) *Builder[V] {
	if b.done {
		return b
	}
	b.deps = append(b.deps, dep.NewQueryOn(connection, query, args...))
	return b
}

// Put commits value under key. ttl == 0 uses the cache default.
func (b *Builder[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	if err := b.begin(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = b.c.defaultTTL
	}
	return b.commit(ctx, key, value, ttl)
}

// Forever commits value under key without expiry.
func (b *Builder[V]) Forever(ctx context.Context, key string, value V) error {
	if err := b.begin(); err != nil {
		return err
	}
	return b.commit(ctx, key, value, 0)
}

// PutMany commits every item with the same TTL and the same dependency set.
// Baselines are captured once for the whole batch, so all items share the
// exact same freshness condition.
func (b *Builder[V]) PutMany(ctx context.Context, items map[string]V, ttl time.Duration) error {
	if err := b.begin(); err != nil {
		return err
	}
	c := b.c
	if !c.enabled || len(items) == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	deps, err := b.capture(ctx)
	if err != nil {
		return err
	}

	batch := make(map[string]store.Item, len(items))
	for k, v := range items {
		raw, err := b.encodeEntry(deps, v)
		if err != nil {
			return err
		}
		sk := c.entryKey(k)
		batch[sk] = store.Item{Value: raw, Cost: c.computeSetCost(sk, raw)}
	}

	rejected, err := c.store.SetMany(ctx, batch, ttl)
	for _, sk := range rejected {
		c.log.Debug("batch set rejected by store (pressure)", Fields{"key": sk})
		c.hooks.StoreSetRejected(sk, true)
	}
	return err
}

// Remember is read-through: a fresh hit returns without running producer;
// otherwise producer runs exactly once, synchronously, and its result is
// committed with the accumulated dependencies and returned. The producer's
// error or any commit error leaves the cache unwritten and propagates.
func (b *Builder[V]) Remember(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (V, error)) (V, error) {
	var zero V
	if err := b.begin(); err != nil {
		return zero, err
	}
	c := b.c

	if c.enabled {
		if v, ok, err := c.Get(ctx, key); err != nil {
			return zero, err
		} else if ok {
			return v, nil
		}
	}

	v, err := producer(ctx)
	if err != nil {
		return zero, err
	}
	if !c.enabled {
		return v, nil
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := b.commit(ctx, key, v, ttl); err != nil {
		return zero, err
	}
	return v, nil
}

func (b *Builder[V]) begin() error {
	if b.done {
		return errBuilderReused
	}
	b.done = true
	return nil
}

// commit captures baselines and writes one entry. ttl <= 0 stores without
// expiry (resolved by the callers above).
func (b *Builder[V]) commit(ctx context.Context, key string, value V, ttl time.Duration) error {
	c := b.c
	if !c.enabled {
		return nil
	}

	deps, err := b.capture(ctx)
	if err != nil {
		return err
	}
	raw, err := b.encodeEntry(deps, value)
	if err != nil {
		return err
	}

	k := c.entryKey(key)
	ok, err := c.store.Set(ctx, k, raw, c.computeSetCost(k, raw), ttl)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Debug("set rejected by store (pressure)", Fields{"key": key})
		c.hooks.StoreSetRejected(k, false)
	}
	return nil
}

// capture asks every accumulated dependency for its baseline. With
// baseline-failure tolerance on, a failing dependency is dropped from the
// entry (logged, hooked); otherwise the first failure aborts the commit and
// nothing is written.
func (b *Builder[V]) capture(ctx context.Context) ([]wire.Dep, error) {
	if len(b.deps) == 0 {
		return nil, nil
	}
	out := make([]wire.Dep, 0, len(b.deps))
	for _, d := range b.deps {
		kind := dep.KindName(d.Kind())

		params, err := d.EncodeParams()
		if err != nil {
			return nil, &BaselineError{Kind: kind, Err: err}
		}
		baseline, err := d.CaptureBaseline(ctx, b.c)
		if err != nil {
			if b.c.allowBaseFail {
				b.c.log.Warn("baseline capture failed; dependency dropped", Fields{
					"kind": kind,
					"err":  err,
				})
				b.c.hooks.BaselineDropped(kind, err)
				continue
			}
			return nil, &BaselineError{Kind: kind, Err: err}
		}
		out = append(out, wire.Dep{Kind: d.Kind(), Params: params, Baseline: baseline})
	}
	return out, nil
}

func (b *Builder[V]) encodeEntry(deps []wire.Dep, value V) ([]byte, error) {
	payload, err := b.c.codec.Encode(value)
	if err != nil {
		return nil, err
	}
	return wire.EncodeEntry(wire.Entry{Deps: deps, Payload: payload})
}
