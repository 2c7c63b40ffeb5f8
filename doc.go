// Package depcache implements a dependency-tracking cache over a pluggable
// byte store. Values are written together with dependency baselines; every
// read re-proves freshness against those baselines and treats anything it
// cannot prove fresh as a miss, evicting stale entries on the way. The
// backend never interprets entries; it round-trips opaque bytes.
//
// Dependencies come in two kinds. Tag dependencies record per-tag version
// counters: InvalidateTags bumps a counter in O(1) and every entry recorded
// under an older version goes stale, no entry enumeration. Query
// dependencies record the scalar result of a cheap probe query (a
// MAX(updated_at), a COUNT(*)) and go stale when a re-probe disagrees.
//
// Components:
//   - store.Store: byte store with TTL and optional atomic counters
//     (Redis, Ristretto, BigCache).
//   - codec.Codec[V]: (de)serializes V <-> []byte.
//   - tagstore: per-tag version counters inside the backend, atomic
//     increment or advisory-lock fallback.
//   - query.Executor: runs probe queries (database/sql implementation
//     included).
//
// Keys:
//
//	entry:<ns>:<key>  - cache entries
//	tag:<ns>:<tag>    - tag version counters
//	lock:<ns>:tag:<t> - advisory locks for fallback bumps
//
// Read-through pattern:
//
//	user, err := cc.Tags("users").
//		DB("SELECT MAX(updated_at) FROM users WHERE id = ?", id).
//		Remember(ctx, key, 0, func(ctx context.Context) (User, error) {
//			return loadUser(ctx, id)
//		})
package depcache
