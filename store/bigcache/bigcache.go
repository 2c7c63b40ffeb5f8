// Package bigcache adapts allegro/bigcache to the depcache store contract.
//
// BigCache has no per-entry TTL (entries live for the global LifeWindow) and
// no atomic counter primitive, so tag version bumps on this store go through
// the advisory-lock fallback. Size the LifeWindow to exceed the longest entry
// TTL you expect, otherwise tag versions may expire before the entries that
// reference them.
package bigcache

import (
	"context"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/depcache/store"
)

type BigCache struct {
	c *bc.BigCache
}

var _ store.Store = (*BigCache)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*BigCache, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &BigCache{c: c}, nil
}

func (s *BigCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (s *BigCache) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	// BigCache does not support per-entry TTL; uses global LifeWindow.
	return true, s.c.Set(key, value)
}

func (s *BigCache) SetMany(ctx context.Context, items map[string]store.Item, ttl time.Duration) ([]string, error) {
	for k, it := range items {
		if _, err := s.Set(ctx, k, it.Value, it.Cost, ttl); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (s *BigCache) Delete(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return nil
	}
	return err
}

func (s *BigCache) Increment(context.Context, string, int64, time.Duration) (int64, error) {
	return 0, store.ErrIncrementUnsupported
}

func (s *BigCache) Flush(context.Context) error {
	return s.c.Reset()
}

func (s *BigCache) Close(_ context.Context) error {
	return s.c.Close()
}
