package depcache

import (
	"context"

	"github.com/unkn0wn-root/depcache/dep"
	"github.com/unkn0wn-root/depcache/internal/wire"
)

// entryStale evaluates an entry's recorded dependencies in attach order.
//
// The first dependency that reports stale decides: true, no further checks.
// A check that fails resolves through the fail-open policy: fail closed
// means the entry cannot be proven fresh and counts as stale immediately;
// fail open logs and moves on to the remaining dependencies. A dependency
// that cannot be decoded at all (unknown kind, unreadable params) makes the
// entry unusable, which also reads as stale.
//
// Check failures never propagate to the reader: a fail-closed result is an
// ordinary miss.
func (c *cache[V]) entryStale(ctx context.Context, storageKey string, deps []wire.Dep) bool {
	for _, d := range deps {
		kind := dep.KindName(d.Kind)

		dd, err := dep.Decode(d.Kind, d.Params)
		if err != nil {
			c.log.Warn("dependency decode failed", Fields{
				"key":  storageKey,
				"kind": kind,
				"err":  err,
			})
			return true
		}

		stale, err := dd.Stale(ctx, c, d.Baseline)
		if err != nil {
			open := dep.ResolveFailOpen(c.depcfg, dd)
			c.hooks.CheckFailed(kind, open, err)
			if !open {
				c.log.Warn("staleness check failed (fail closed)", Fields{
					"key":  storageKey,
					"kind": kind,
					"err":  err,
				})
				return true
			}
			c.log.Warn("staleness check failed (fail open)", Fields{
				"key":  storageKey,
				"kind": kind,
				"err":  err,
			})
			continue
		}
		if stale {
			return true
		}
	}
	return false
}
