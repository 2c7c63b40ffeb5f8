package tagstore

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/depcache/internal/util"
	"github.com/unkn0wn-root/depcache/lock"
	"github.com/unkn0wn-root/depcache/store"
)

// ==== fake store ====

type memStore struct {
	mu          sync.Mutex
	items       map[string][]byte
	ttls        map[string]time.Duration // last TTL seen per key
	noIncrement bool
	rejectSet   bool
	getErr      error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejectSet {
		return false, nil
	}
	m.items[key] = append([]byte(nil), value...)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memStore) SetMany(ctx context.Context, items map[string]store.Item, ttl time.Duration) ([]string, error) {
	var rejected []string
	for k, it := range items {
		ok, err := m.Set(ctx, k, it.Value, it.Cost, ttl)
		if err != nil {
			return rejected, err
		}
		if !ok {
			rejected = append(rejected, k)
		}
	}
	return rejected, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memStore) Increment(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noIncrement {
		return 0, store.ErrIncrementUnsupported
	}
	var cur int64
	if raw, ok := m.items[key]; ok {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, err
		}
		cur = n
	}
	cur += delta
	m.items[key] = []byte(strconv.FormatInt(cur, 10))
	m.ttls[key] = ttl
	return cur, nil
}

func (m *memStore) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string][]byte{}
	m.ttls = map[string]time.Duration{}
	return nil
}

func (m *memStore) Close(context.Context) error { return nil }

func newTestStore(t *testing.T, ms *memStore) *Store {
	t.Helper()
	return New(ms, lock.NewLocal(), "t", time.Hour, 50*time.Millisecond)
}

// ==== tests ====

func TestVersionMissingIsZero(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t, newMemStore())

	v, err := ts.Version(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("got %d, want 0", v)
	}
}

func TestVersionsMixedSetAndUnset(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ts := newTestStore(t, ms)

	if _, err := ts.Bump(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Bump(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Bump(ctx, "roles"); err != nil {
		t.Fatal(err)
	}

	got, err := ts.Versions(ctx, []string{"users", "roles", "orgs"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]uint64{"users": 2, "roles": 1, "orgs": 0}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestBumpNativeIncrementAndTTL(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ts := newTestStore(t, ms)

	v, err := ts.Bump(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("first bump = %d, want 1", v)
	}
	if v, _ = ts.Bump(ctx, "users"); v != 2 {
		t.Fatalf("second bump = %d, want 2", v)
	}

	got, err := ts.Version(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Fatalf("Version = %d, want 2", got)
	}

	key := util.TagKey("t", "users")
	if !bytes.Equal(ms.items[key], []byte("2")) {
		t.Fatalf("counter must be a decimal string, got %q", ms.items[key])
	}
	if ms.ttls[key] != time.Hour {
		t.Fatalf("counter TTL not refreshed: %v", ms.ttls[key])
	}
}

func TestBumpFallbackIncrementAndTTL(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.noIncrement = true
	ts := newTestStore(t, ms)

	if v, err := ts.Bump(ctx, "users"); err != nil || v != 1 {
		t.Fatalf("first bump = %d, %v", v, err)
	}
	if v, err := ts.Bump(ctx, "users"); err != nil || v != 2 {
		t.Fatalf("second bump = %d, %v", v, err)
	}

	key := util.TagKey("t", "users")
	if !bytes.Equal(ms.items[key], []byte("2")) {
		t.Fatalf("counter bytes = %q", ms.items[key])
	}
	if ms.ttls[key] != time.Hour {
		t.Fatalf("counter TTL not refreshed: %v", ms.ttls[key])
	}
}

func TestBumpFallbackLockTimeout(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.noIncrement = true
	locks := lock.NewLocal()
	ts := New(ms, locks, "t", time.Hour, 20*time.Millisecond)

	release, err := locks.Acquire(ctx, util.LockName("t", "users"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	if _, err := ts.Bump(ctx, "users"); !errors.Is(err, lock.ErrTimeout) {
		t.Fatalf("want lock.ErrTimeout, got %v", err)
	}
	// the lost bump must not have touched the counter
	if v, _ := ts.Version(ctx, "users"); v != 0 {
		t.Fatalf("counter moved despite lock timeout: %d", v)
	}
}

func TestBumpFallbackWriteRejected(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.noIncrement = true
	ms.rejectSet = true
	ts := newTestStore(t, ms)

	if _, err := ts.Bump(ctx, "users"); !errors.Is(err, ErrWriteRejected) {
		t.Fatalf("want ErrWriteRejected, got %v", err)
	}
}

func TestVersionGarbageCounterErrors(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.items[util.TagKey("t", "users")] = []byte("not-a-number")
	ts := newTestStore(t, ms)

	if _, err := ts.Version(ctx, "users"); err == nil {
		t.Fatal("garbage counter must error")
	}

	ms.noIncrement = true
	if _, err := ts.Bump(ctx, "users"); err == nil {
		t.Fatal("fallback bump over garbage counter must error")
	}
}

func TestConcurrentFallbackBumpsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.noIncrement = true
	ts := New(ms, lock.NewLocal(), "t", time.Hour, time.Second)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ts.Bump(ctx, "users"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	v, err := ts.Version(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	if v != n {
		t.Fatalf("lost updates: version = %d, want %d", v, n)
	}
}

func TestBumpStoreErrorPropagates(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.noIncrement = true
	ms.getErr = errors.New("backend down")
	ts := newTestStore(t, ms)

	if _, err := ts.Bump(ctx, "users"); err == nil {
		t.Fatal("store error must propagate")
	}
}

func TestTagsAreNamespaced(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	a := New(ms, lock.NewLocal(), "a", time.Hour, time.Second)
	b := New(ms, lock.NewLocal(), "b", time.Hour, time.Second)

	if _, err := a.Bump(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	va, _ := a.Version(ctx, "users")
	vb, _ := b.Version(ctx, "users")
	if va != 1 || vb != 0 {
		t.Fatalf("namespaces bleed: a=%d b=%d", va, vb)
	}
}
