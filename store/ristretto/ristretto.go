// Package ristretto adapts dgraph-io/ristretto to the depcache store contract.
//
// Ristretto is an in-process, cost-bounded cache: writes may be rejected under
// pressure (Set returns ok=false) and there is no atomic counter primitive, so
// tag version bumps on this store go through the advisory-lock fallback.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/depcache/store"
)

type Ristretto struct {
	c *rc.Cache
}

var _ store.Store = (*Ristretto)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost is provided by the caller (depcache passes cost per Set).
}

func New(cfg Config) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto{c: c}, nil
}

func (s *Ristretto) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Ristretto) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return s.c.Set(key, value, cost), nil
	}
	return s.c.SetWithTTL(key, value, cost, ttl), nil
}

func (s *Ristretto) SetMany(ctx context.Context, items map[string]store.Item, ttl time.Duration) ([]string, error) {
	var rejected []string
	for k, it := range items {
		ok, err := s.Set(ctx, k, it.Value, it.Cost, ttl)
		if err != nil {
			return rejected, err
		}
		if !ok {
			rejected = append(rejected, k)
		}
	}
	return rejected, nil
}

func (s *Ristretto) Delete(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Ristretto) Increment(context.Context, string, int64, time.Duration) (int64, error) {
	return 0, store.ErrIncrementUnsupported
}

func (s *Ristretto) Flush(context.Context) error {
	s.c.Clear()
	return nil
}

func (s *Ristretto) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto metrics if enabled (not part of store.Store).
func (s *Ristretto) Metrics() *rc.Metrics { return s.c.Metrics }
