package cacheops

import (
	"context"
)

// Customizer is a pure builder transformation. Customizers run in
// registration order after configuration is applied and before the Manager
// is finalized, so later customizers see the effect of earlier ones.
type Customizer func(*Builder) *Builder

// Builder assembles a Manager. Obtain one through New's Customizers; the
// zero value is not usable.
type Builder struct {
	backend  Backend
	forced   bool
	names    []string // restricted allow-list; nil => dynamic
	defaults cacheConfig
	degrade  bool
	log      Logger
	hooks    Hooks
}

func newBuilder(backend Backend, cfg *Config, forced bool) *Builder {
	b := &Builder{
		backend: backend,
		forced:  forced,
		names:   cfg.CacheNames,
		degrade: cfg.DegradeOnStoreError,
		log:     cfg.Logger,
		hooks:   cfg.Hooks,
		defaults: cacheConfig{
			ttl:      cfg.ttlFor(backend.Provider()),
			cacheNil: !cfg.DisableNilCaching,
		},
	}
	if backend.Provider() == ProviderLocal && cfg.Local != nil {
		b.defaults.loader = cfg.Local.Loader
		b.defaults.cost = cfg.Local.Cost
	}
	return b
}

func (b *Builder) WithLogger(l Logger) *Builder {
	b.log = coalesce[Logger](l, NopLogger{})
	return b
}

func (b *Builder) WithHooks(h Hooks) *Builder {
	b.hooks = coalesce[Hooks](h, NopHooks{})
	return b
}

// WithCacheNames switches the registry to Restricted mode with exactly these
// names. An empty call switches back to Dynamic mode.
func (b *Builder) WithCacheNames(names ...string) *Builder {
	b.names = names
	return b
}

func (b *Builder) WithNilCaching(allow bool) *Builder {
	b.defaults.cacheNil = allow
	return b
}

func (b *Builder) WithLoader(fn LoaderFunc) *Builder {
	b.defaults.loader = fn
	return b
}

// Build finalizes the Manager. In Restricted mode every allow-listed cache is
// created eagerly here; a store that cannot be built is a startup failure.
func (b *Builder) Build(ctx context.Context) (*Manager, error) {
	m := &Manager{
		backend:    b.backend,
		log:        b.log,
		hooks:      b.hooks,
		defaults:   b.defaults,
		degrade:    b.degrade,
		restricted: len(b.names) > 0,
		caches:     make(map[string]*Cache, len(b.names)),
	}
	for _, name := range b.names {
		if _, ok := m.caches[name]; ok {
			continue
		}
		c, err := m.createCache(name)
		if err != nil {
			_ = m.Close(ctx)
			return nil, &ConfigError{Reason: "eager cache creation failed for " + name, Err: err}
		}
		m.caches[name] = c
	}
	return m, nil
}
