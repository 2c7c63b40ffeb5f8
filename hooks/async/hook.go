// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/depcache"
//	"github.com/unkn0wn-root/depcache/codec"
//	"github.com/unkn0wn-root/depcache/hooks/async"
//	"github.com/unkn0wn-root/depcache/sloghooks"
//	storeredis "github.com/unkn0wn-root/depcache/store/redis"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    EvictEvery:      10, // sample logs: ~every 10th eviction
//	    CheckFailEvery:  1,  // log every failed staleness check
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := depcache.New[User](depcache.Options[User]{
//	    Namespace: "app:prod:user",
//	    Store:     storeredis.New(storeredis.Config{Client: rdb}),
//	    Codec:     codec.JSON[User]{},
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/depcache"
)

type Hooks struct {
	inner depcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ depcache.Hooks = (*Hooks)(nil)

func New(inner depcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) EntryEvicted(k, r string) { h.try(func() { h.inner.EntryEvicted(k, r) }) }
func (h *Hooks) CheckFailed(kind string, open bool, err error) {
	h.try(func() { h.inner.CheckFailed(kind, open, err) })
}
func (h *Hooks) BaselineDropped(kind string, err error) {
	h.try(func() { h.inner.BaselineDropped(kind, err) })
}
func (h *Hooks) LockTimeout(tag string) { h.try(func() { h.inner.LockTimeout(tag) }) }
func (h *Hooks) TagInvalidated(tag string, v uint64) {
	h.try(func() { h.inner.TagInvalidated(tag, v) })
}
func (h *Hooks) StoreSetRejected(k string, bulk bool) {
	h.try(func() { h.inner.StoreSetRejected(k, bulk) })
}
