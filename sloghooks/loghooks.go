package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/depcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	EvictEvery     uint64
	CheckFailEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	evictCtr     atomic.Uint64
	checkFailCtr atomic.Uint64
}

var _ depcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) EntryEvicted(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.EvictEvery, &h.evictCtr) {
		return
	}
	h.l.Debug("depcache.entry_evicted",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) CheckFailed(kind string, failOpen bool, err error) {
	if h.l == nil || !sample(h.opts.CheckFailEvery, &h.checkFailCtr) {
		return
	}
	h.l.Warn("depcache.check_failed",
		"kind", kind,
		"fail_open", failOpen,
		"err", err)
}

func (h *Hooks) BaselineDropped(kind string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("depcache.baseline_dropped",
		"kind", kind,
		"err", err)
}

func (h *Hooks) LockTimeout(tag string) {
	if h.l == nil {
		return
	}
	h.l.Warn("depcache.lock_timeout",
		"tag", tag,
		"msg", "tag bump skipped; invalidation lost for this call")
}

func (h *Hooks) TagInvalidated(tag string, version uint64) {
	if h.l == nil {
		return
	}
	h.l.Debug("depcache.tag_invalidated",
		"tag", tag,
		"version", version)
}

func (h *Hooks) StoreSetRejected(storageKey string, isBulk bool) {
	if h.l == nil {
		return
	}
	h.l.Warn("depcache.store_set_rejected",
		"key", h.redact(storageKey),
		"is_bulk", isBulk)
}
