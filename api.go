package cacheops

import (
	"context"
)

// New selects exactly one backend per cfg and returns the Manager built on
// it. Call it once during startup and hand the Manager to every cached
// operation; the provider choice is immutable afterward.
//
// Selection: a forced cfg.Provider skips detection and fails fatally if it
// cannot be built. Otherwise DefaultCandidates are probed in priority order
// and the first detected backend wins, falling back to the in-memory store
// which is always available. Configuration errors (ambiguous provider
// sections, unknown forced provider) surface here, never later.
func New(ctx context.Context, cfg Config) (*Manager, error) {
	ncfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	if ncfg.Provider == ProviderNone {
		ncfg.Logger.Info("caching disabled; operations invoke directly", nil)
		return &Manager{disabled: true, log: ncfg.Logger, hooks: ncfg.Hooks}, nil
	}

	backend, forced, err := selectBackend(ctx, &ncfg, DefaultCandidates())
	if err != nil {
		return nil, err
	}

	b := newBuilder(backend, &ncfg, forced)
	for _, cz := range ncfg.Customizers {
		if cz == nil {
			continue
		}
		b = cz(b)
	}

	m, err := b.Build(ctx)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}

	ncfg.Hooks.ProviderSelected(string(backend.Provider()), forced)
	ncfg.Logger.Info("provider selected", Fields{"provider": backend.Provider(), "forced": forced})
	return m, nil
}
