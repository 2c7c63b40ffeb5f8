package dep

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

func init() { Register(KindTags, "tags", decodeTags) }

// Tags makes an entry dependent on named invalidation groups. The baseline
// records each tag's version counter at write time; bumping any member tag
// afterwards makes the entry stale. Unknown tags read as version 0.
type Tags struct {
	names []string
}

var _ Dependency = (*Tags)(nil)

// NewTags builds a tag dependency. Empty names are dropped, duplicates
// collapse to their first occurrence, order is otherwise preserved.
func NewTags(names ...string) *Tags {
	t := &Tags{}
	t.Add(names...)
	return t
}

// Add merges more names under the NewTags rules. Used by builders when the
// caller requests tags across several chained calls; it has no effect on
// entries whose baseline was already captured.
func (t *Tags) Add(names ...string) *Tags {
	for _, n := range names {
		if n == "" || t.has(n) {
			continue
		}
		t.names = append(t.names, n)
	}
	return t
}

func (t *Tags) has(name string) bool {
	for _, n := range t.names {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns the tag set in attach order. Callers must not mutate it.
func (t *Tags) Names() []string { return t.names }

func (t *Tags) Kind() byte { return KindTags }

type tagsParams struct {
	Names []string `msgpack:"names"`
}

func (t *Tags) EncodeParams() ([]byte, error) {
	return msgpack.Marshal(tagsParams{Names: t.names})
}

func decodeTags(params []byte) (Dependency, error) {
	var p tagsParams
	if err := msgpack.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("tags params: %w", err)
	}
	return &Tags{names: p.Names}, nil
}

// CaptureBaseline snapshots every member tag's current version.
func (t *Tags) CaptureBaseline(ctx context.Context, env Env) ([]byte, error) {
	versions := make(map[string]uint64, len(t.names))
	for _, n := range t.names {
		v, err := env.TagVersion(ctx, n)
		if err != nil {
			return nil, err
		}
		versions[n] = v
	}
	return msgpack.Marshal(versions)
}

// Stale reports true as soon as one tag's current version exceeds the
// recorded one. Tags absent from the baseline count as version 0. The
// comparison is strictly greater-than so a counter that reset to 0 after
// its TTL expired never retroactively marks entries stale. A baseline that
// does not decode reads as fresh.
func (t *Tags) Stale(ctx context.Context, env Env, baseline []byte) (bool, error) {
	var stored map[string]uint64
	if err := msgpack.Unmarshal(baseline, &stored); err != nil {
		return false, nil
	}
	for _, n := range t.names {
		cur, err := env.TagVersion(ctx, n)
		if err != nil {
			return false, err
		}
		if cur > stored[n] {
			return true, nil
		}
	}
	return false, nil
}
