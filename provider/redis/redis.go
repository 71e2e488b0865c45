// Package redis adapts redis/go-redis as the distributed provider. A single
// client is shared by every named cache; each cache works through a prefixed
// view of the shared keyspace so distinct cache names never collide.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/cacheops/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// clearScanCount is the per-iteration batch size for prefix clears.
const clearScanCount = 256

type Store struct {
	rdb         goredis.UniversalClient
	prefix      string
	closeClient bool
}

var (
	_ pr.Store   = (*Store)(nil)
	_ pr.Claimer = (*Store)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// WithPrefix returns a view of the same client scoped to prefix. Derived
// views never close the shared client; only the base store does.
func (s *Store) WithPrefix(prefix string) *Store {
	return &Store{rdb: s.rdb, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // non-positive TTL means "no expiry" per provider contract
	}
	if err := s.rdb.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SetNX(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) ([]byte, bool, error) {
	if ttl <= 0 {
		ttl = 0
	}
	k := s.prefix + key
	claimed, err := s.rdb.SetNX(ctx, k, value, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if claimed {
		return nil, true, nil
	}
	// lost the race; report the winner's value (best effort, it may have
	// expired between the SETNX and this read)
	prev, err := s.rdb.Get(ctx, k).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return prev, false, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

// Clear removes every key under this view's prefix with SCAN+DEL batches.
// An unprefixed view clears nothing and returns an error: wiping the entire
// keyspace of a shared database must be an explicit FLUSHDB by the operator.
func (s *Store) Clear(ctx context.Context) error {
	if s.prefix == "" {
		return errors.New("redis provider: refusing to clear an unprefixed keyspace")
	}
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", clearScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the underlying client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
