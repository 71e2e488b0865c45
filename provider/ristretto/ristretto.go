// Package ristretto adapts dgraph-io/ristretto as the bounded/TTL local
// provider. Entry admission and eviction are cost-based; TTLs are either
// fixed after write or re-armed on access, depending on configuration.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/cacheops/provider"
)

type Store struct {
	c           *rc.Cache
	afterAccess bool
}

var _ pr.Store = (*Store)(nil)

// item wraps the stored bytes with the metadata needed to re-arm TTLs on
// access (expire-after-access policy).
type item struct {
	val  []byte
	cost int64
	ttl  time.Duration
}

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool

	// ExpireAfterAccess re-sets an entry with its original TTL on every hit,
	// so the TTL measures idle time rather than age.
	ExpireAfterAccess bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
		// MaxCost is a budget of caller-supplied costs only. Without this,
		// ristretto adds ~57 bytes of internal cost per entry and small
		// entry-count budgets admit nothing.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c, afterAccess: cfg.ExpireAfterAccess}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	it, ok := v.(item)
	if !ok {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	if s.afterAccess && it.ttl > 0 {
		s.c.SetWithTTL(key, it, it.cost, it.ttl)
	}
	return it.val, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0 // ristretto: 0 means no expiry
	}
	return s.c.SetWithTTL(key, item{val: value, cost: cost, ttl: ttl}, cost, ttl), nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.c.Clear()
	return nil
}

func (s *Store) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto's own counters for applications that want them
// (not part of the provider contract).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
