// Package redislock implements a cross-process advisory lock on Redis.
//
// Acquire is SET NX with a random token and a safety TTL; release runs a
// compare-and-delete script so only the holder's token can free the lock.
// This is a single-node advisory lock (no Redlock quorum): it serializes
// tag version bumps, it is not a general mutual-exclusion primitive.
package redislock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/depcache/lock"
)

var ErrNilClient = errors.New("redislock: nil client")

const (
	// DefaultLockTTL bounds how long an orphaned lock (holder crashed before
	// releasing) can block other bumpers.
	DefaultLockTTL = 10 * time.Second

	// DefaultRetryInterval is the poll interval while waiting for a held lock.
	DefaultRetryInterval = 50 * time.Millisecond
)

// releaseScript deletes the lock only when the stored token matches ours.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Locker struct {
	rdb      goredis.UniversalClient
	lockTTL  time.Duration
	interval time.Duration
}

var _ lock.Locker = (*Locker)(nil)

type Config struct {
	Client        goredis.UniversalClient
	LockTTL       time.Duration // safety TTL on held locks; 0 = DefaultLockTTL
	RetryInterval time.Duration // poll interval while waiting; 0 = DefaultRetryInterval
}

func New(cfg Config) (*Locker, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	l := &Locker{
		rdb:      cfg.Client,
		lockTTL:  cfg.LockTTL,
		interval: cfg.RetryInterval,
	}
	if l.lockTTL <= 0 {
		l.lockTTL = DefaultLockTTL
	}
	if l.interval <= 0 {
		l.interval = DefaultRetryInterval
	}
	return l, nil
}

func (l *Locker) Acquire(ctx context.Context, name string, wait time.Duration) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	release := func() {
		// Detach from the caller's (possibly canceled) context but stay bounded.
		rctx, cancel := context.WithTimeout(context.Background(), l.lockTTL)
		defer cancel()
		_ = releaseScript.Run(rctx, l.rdb, []string{name}, token).Err()
	}

	ok, err := l.rdb.SetNX(ctx, name, token, l.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return release, nil
	}
	if wait <= 0 {
		return nil, lock.ErrTimeout
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	tick := time.NewTicker(l.interval)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			ok, err := l.rdb.SetNX(ctx, name, token, l.lockTTL).Result()
			if err != nil {
				return nil, err
			}
			if ok {
				return release, nil
			}
		case <-deadline.C:
			return nil, lock.ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
