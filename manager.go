package cacheops

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Manager owns the set of named caches. It is constructed once at startup
// (see New), is safe for concurrent use, and its provider choice is fixed
// for its whole lifetime.
//
// Two operating modes, chosen at construction:
//
//   - Dynamic: unknown names create a new Cache transparently on first
//     request. Concurrent first requests for one name observe exactly one
//     instance.
//   - Restricted: a fixed allow-list, created eagerly at startup. Requests
//     for other names report absent; only an invocation that actually uses
//     the name fails, never the startup itself.
type Manager struct {
	backend  Backend
	log      Logger
	hooks    Hooks
	defaults cacheConfig
	degrade  bool

	disabled   bool
	restricted bool

	mu     sync.RWMutex
	caches map[string]*Cache

	closeOnce sync.Once
	closeErr  error
}

// Cache returns the cache for name. ok=false with a nil error means the name
// is absent (Restricted mode); a non-nil error means a Dynamic creation
// failed at the store level.
func (m *Manager) Cache(name string) (*Cache, bool, error) {
	if m.disabled {
		return nil, false, nil
	}

	m.mu.RLock()
	c, ok := m.caches[name]
	m.mu.RUnlock()
	if ok {
		return c, true, nil
	}
	if m.restricted {
		return nil, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.caches[name]; ok { // lost the creation race
		return c, true, nil
	}
	c, err := m.createCache(name)
	if err != nil {
		return nil, false, err
	}
	m.caches[name] = c
	m.log.Debug("created cache", Fields{"cache": name})
	return c, true, nil
}

// Names returns the managed cache names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.caches))
	for name := range m.caches {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Disabled reports forced-none mode: interceptors bypass the cache entirely.
func (m *Manager) Disabled() bool { return m.disabled }

// Provider reports the selected backend type (ProviderNone when disabled).
func (m *Manager) Provider() ProviderType {
	if m.disabled {
		return ProviderNone
	}
	return m.backend.Provider()
}

// ClearAll clears every managed cache. All caches are attempted even when
// some fail; the failures are joined.
func (m *Manager) ClearAll(ctx context.Context) error {
	if m.disabled {
		return nil
	}
	m.mu.RLock()
	caches := make([]*Cache, 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	m.mu.RUnlock()

	var errs []error
	for _, c := range caches {
		if err := c.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases every cache store and the backend. Safe to call multiple
// times; only the first call does work.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		if m.disabled {
			return
		}
		m.mu.Lock()
		caches := m.caches
		m.caches = make(map[string]*Cache)
		m.mu.Unlock()

		var errs []error
		for _, c := range caches {
			if err := c.close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := m.backend.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}

func (m *Manager) createCache(name string) (*Cache, error) {
	store, err := m.backend.Store(name)
	if err != nil {
		return nil, err
	}
	return newCache(name, store, m.defaults, m.log, m.hooks), nil
}
