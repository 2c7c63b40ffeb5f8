// Package tagstore keeps one monotonically increasing version counter per
// tag inside the backend store, under the reserved tag keyspace. Invalidating
// a tag is a single counter bump, O(1) no matter how many entries reference
// the tag; entries notice by comparing recorded versions on read.
//
// Counters are stored as decimal strings so they interoperate with native
// atomic increments (Redis INCR operates on decimal strings) and stay
// readable when inspecting the backend.
package tagstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/unkn0wn-root/depcache/internal/util"
	"github.com/unkn0wn-root/depcache/lock"
	"github.com/unkn0wn-root/depcache/store"
)

// ErrWriteRejected means the backend refused the fallback version write
// (pressure rejection). The bump is lost; the caller decides how loudly.
var ErrWriteRejected = errors.New("tagstore: version write rejected")

type Store struct {
	store    store.Store
	locks    lock.Locker
	ns       string
	ttl      time.Duration // counter TTL; refreshed on every bump
	lockWait time.Duration // bound on fallback lock acquisition
}

// New wires a tag version store. ttl <= 0 disables counter expiry. The ttl
// must exceed the longest entry TTL in the system: a counter that expires
// before the entries referencing it resets to 0, which reads as "never
// invalidated".
func New(s store.Store, locks lock.Locker, namespace string, ttl, lockWait time.Duration) *Store {
	return &Store{store: s, locks: locks, ns: namespace, ttl: ttl, lockWait: lockWait}
}

// Version returns tag's current counter. Never-set and expired counters
// read as 0.
func (ts *Store) Version(ctx context.Context, tag string) (uint64, error) {
	raw, ok, err := ts.store.Get(ctx, util.TagKey(ts.ns, tag))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	u, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tag version parse at %s: %w", tag, err)
	}
	return u, nil
}

// Versions reads several counters in one call. The result has an element
// for every requested tag, 0 for counters that are absent.
func (ts *Store) Versions(ctx context.Context, tags []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(tags))
	for _, tag := range tags {
		v, err := ts.Version(ctx, tag)
		if err != nil {
			return nil, err
		}
		out[tag] = v
	}
	return out, nil
}

// Bump increments tag's counter by one and returns the new version,
// refreshing the counter TTL. Stores with a native atomic increment take
// that path; others serialize a read-modify-write behind the tag's advisory
// lock. When the lock is not acquired within the configured wait the bump is
// abandoned and lock.ErrTimeout returned; that invalidation is lost.
func (ts *Store) Bump(ctx context.Context, tag string) (uint64, error) {
	key := util.TagKey(ts.ns, tag)

	v, err := ts.store.Increment(ctx, key, 1, ts.ttl)
	if err == nil {
		return uint64(v), nil
	}
	if !errors.Is(err, store.ErrIncrementUnsupported) {
		return 0, err
	}

	release, err := ts.locks.Acquire(ctx, util.LockName(ts.ns, tag), ts.lockWait)
	if err != nil {
		return 0, err
	}
	defer release()

	cur, err := ts.Version(ctx, tag)
	if err != nil {
		return 0, err
	}
	next := cur + 1
	val := strconv.FormatUint(next, 10)
	ok, err := ts.store.Set(ctx, key, []byte(val), int64(len(val)), ts.ttl)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrWriteRejected
	}
	return next, nil
}
