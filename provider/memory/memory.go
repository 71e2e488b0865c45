// Package memory implements the always-available fallback store: an unbounded
// in-process map with optional TTL sweeping. It has no external dependency and
// is the provider of last resort when nothing else is detected.
package memory

import (
	"context"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/cacheops/provider"
)

type entry struct {
	val []byte
	exp time.Time // zero => no expiry
}

// Store is an unbounded concurrent map store. Expired entries are dropped
// lazily on read and, when a sweep interval is configured, by a background
// janitor.
type Store struct {
	mu     sync.RWMutex
	m      map[string]entry
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var (
	_ pr.Store   = (*Store)(nil)
	_ pr.Claimer = (*Store)(nil)
)

type Config struct {
	// SweepInterval enables a background janitor that prunes expired entries.
	// 0 disables the janitor; expired entries are then dropped on read only.
	SweepInterval time.Duration
}

func New(cfg Config) *Store {
	s := &Store{m: make(map[string]entry)}
	if cfg.SweepInterval > 0 {
		s.ticker = time.NewTicker(cfg.SweepInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.sweep()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		s.mu.Lock()
		// re-check under write lock; a fresh Set may have replaced it
		if cur, ok := s.m[key]; ok && cur.expired(time.Now()) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	s.m[key] = entry{val: value, exp: expiry(ttl)}
	s.mu.Unlock()
	return true, nil
}

// SetNX is atomic: the map lock spans the presence check and the write, so
// concurrent claimers observe exactly one winner.
func (s *Store) SetNX(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) ([]byte, bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[key]; ok && !e.expired(now) {
		return e.val, false, nil
	}
	s.m[key] = entry{val: value, exp: expiry(ttl)}
	return nil, true, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	s.m = make(map[string]entry)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}

// Len reports the current entry count, including not-yet-swept expired
// entries. Intended for tests and diagnostics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.m {
		if e.expired(now) {
			delete(s.m, k)
		}
	}
	s.mu.Unlock()
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
