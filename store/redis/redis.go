// Package redis adapts a go-redis client to the depcache store contract.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/depcache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ store.Store = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per store contract
	}

	err := s.rdb.Set(ctx, key, value, ttl).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetMany pipelines the writes into a single round-trip. Redis accepts every
// write it can execute, so rejected is always nil.
func (s *Redis) SetMany(ctx context.Context, items map[string]store.Item, ttl time.Duration) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = 0
	}

	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for k, it := range items {
			p.Set(ctx, k, it.Value, ttl)
		}
		return nil
	})
	return nil, err
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Increment atomically adds delta and (optionally) refreshes TTL.
// When ttl > 0, INCRBY + EXPIRE are pipelined in a single round-trip and the
// INCRBY result is captured from the pipeline (no extra round-trip).
func (s *Redis) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		v, err := s.rdb.IncrBy(ctx, key, delta).Result()
		if err != nil {
			return 0, err
		}
		return v, nil
	}

	var incr *goredis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.IncrBy(ctx, key, delta)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Flush wipes the selected logical database. Use a dedicated DB (or a
// dedicated instance) for the cache when Flush must not affect other data.
func (s *Redis) Flush(ctx context.Context) error {
	return s.rdb.FlushDB(ctx).Err()
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Redis) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
