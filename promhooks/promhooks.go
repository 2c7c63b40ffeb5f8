// Package promhooks exports depcache hook events as Prometheus counters.
//
// One Hooks per cache; the cache's namespace becomes a const label so
// several caches can share a registry.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/depcache"
)

type Hooks struct {
	evictions     *prometheus.CounterVec
	checkFails    *prometheus.CounterVec
	baselineDrops *prometheus.CounterVec
	lockTimeouts  prometheus.Counter
	invalidations prometheus.Counter
	setRejects    *prometheus.CounterVec
}

var _ depcache.Hooks = (*Hooks)(nil)

// New registers the counters with reg (nil = prometheus.DefaultRegisterer).
// cache names the cache instance, typically its namespace. Registering the
// same cache name twice on one registry panics, as promauto does.
func New(reg prometheus.Registerer, cache string) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	lbl := prometheus.Labels{"cache": cache}

	return &Hooks{
		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "depcache_evictions_total",
			Help:        "Entries deleted by the cache on read",
			ConstLabels: lbl,
		}, []string{"reason"}), // "stale", "corrupt", "value_decode"
		checkFails: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "depcache_check_failures_total",
			Help:        "Dependency staleness checks that failed at read time",
			ConstLabels: lbl,
		}, []string{"kind", "resolution"}), // resolution: "open", "closed"
		baselineDrops: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "depcache_baselines_dropped_total",
			Help:        "Dependency baselines dropped at write time",
			ConstLabels: lbl,
		}, []string{"kind"}),
		lockTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name:        "depcache_lock_timeouts_total",
			Help:        "Tag bumps skipped because the fallback lock timed out",
			ConstLabels: lbl,
		}),
		invalidations: f.NewCounter(prometheus.CounterOpts{
			Name:        "depcache_tag_invalidations_total",
			Help:        "Tag version bumps",
			ConstLabels: lbl,
		}),
		setRejects: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "depcache_store_set_rejections_total",
			Help:        "Store writes rejected with ok=false",
			ConstLabels: lbl,
		}, []string{"scope"}), // "single", "bulk"
	}
}

func (h *Hooks) EntryEvicted(_, reason string) { h.evictions.WithLabelValues(reason).Inc() }

func (h *Hooks) CheckFailed(kind string, failOpen bool, _ error) {
	resolution := "closed"
	if failOpen {
		resolution = "open"
	}
	h.checkFails.WithLabelValues(kind, resolution).Inc()
}

func (h *Hooks) BaselineDropped(kind string, _ error) {
	h.baselineDrops.WithLabelValues(kind).Inc()
}

func (h *Hooks) LockTimeout(string) { h.lockTimeouts.Inc() }

func (h *Hooks) TagInvalidated(string, uint64) { h.invalidations.Inc() }

func (h *Hooks) StoreSetRejected(_ string, bulk bool) {
	scope := "single"
	if bulk {
		scope = "bulk"
	}
	h.setRejects.WithLabelValues(scope).Inc()
}
