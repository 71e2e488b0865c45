package cacheops

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/cacheops/provider"
	bcprov "github.com/unkn0wn-root/cacheops/provider/bigcache"
	memprov "github.com/unkn0wn-root/cacheops/provider/memory"
	rsprov "github.com/unkn0wn-root/cacheops/provider/ristretto"
	rdprov "github.com/unkn0wn-root/cacheops/provider/redis"
)

const (
	redisDetectTimeout = 3 * time.Second
	memorySweep        = time.Minute

	defaultLocalMaxEntries = 10_000
	localCounterFactor     = 10
	localBufferItems       = 64
)

// Backend hands out the backing store for each named cache. Local backends
// create a private store per cache; shared backends (Redis) return prefixed
// views of one store.
type Backend interface {
	Provider() ProviderType
	Store(name string) (pr.Store, error)
	Close(ctx context.Context) error
}

// Candidate is one entry of the selector's ordered provider list.
type Candidate struct {
	Provider ProviderType

	// Detect reports whether the backend is present/configured. Candidates
	// are evaluated in order and evaluation stops at the first success;
	// later predicates never run.
	Detect func(ctx context.Context, cfg *Config) bool

	// Build instantiates the backend. During auto-detection a Build failure
	// is logged and the next candidate is tried; for a forced provider the
	// failure is fatal.
	Build func(ctx context.Context, cfg *Config) (Backend, error)
}

// DefaultCandidates returns the selection order, highest priority first.
// The memory candidate always detects, so selection can never come up empty.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Provider: ProviderRedis, Detect: detectRedis, Build: buildRedis},
		{
			Provider: ProviderLocal,
			Detect:   func(_ context.Context, cfg *Config) bool { return cfg.Local != nil },
			Build:    buildLocal,
		},
		{
			Provider: ProviderBigCache,
			Detect:   func(_ context.Context, cfg *Config) bool { return cfg.BigCache != nil },
			Build:    buildBigCache,
		},
		{
			Provider: ProviderMemory,
			Detect:   func(context.Context, *Config) bool { return true },
			Build:    buildMemory,
		},
	}
}

// selectBackend picks exactly one backend. A forced provider skips detection
// entirely and its Build failure is fatal; auto-detection walks candidates in
// order, stops at the first successful Detect, and skips candidates whose
// Build fails.
func selectBackend(ctx context.Context, cfg *Config, candidates []Candidate) (Backend, bool, error) {
	if cfg.Provider != ProviderAuto {
		for _, cand := range candidates {
			if cand.Provider != cfg.Provider {
				continue
			}
			b, err := cand.Build(ctx, cfg)
			if err != nil {
				return nil, true, &ConfigError{Reason: fmt.Sprintf("forced provider %q unavailable", cfg.Provider), Err: err}
			}
			return b, true, nil
		}
		return nil, true, &ConfigError{Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}

	for _, cand := range candidates {
		if !cand.Detect(ctx, cfg) {
			continue
		}
		b, err := cand.Build(ctx, cfg)
		if err != nil {
			cfg.Logger.Warn("provider detected but failed to build; trying next candidate",
				Fields{"provider": cand.Provider, "err": err})
			continue
		}
		return b, false, nil
	}
	return nil, false, &ConfigError{Reason: "no provider could be selected"}
}

// ---- redis ----

func detectRedis(_ context.Context, cfg *Config) bool {
	return cfg.Redis != nil || os.Getenv("REDIS_ADDR") != ""
}

func buildRedis(ctx context.Context, cfg *Config) (Backend, error) {
	rcfg := cfg.Redis
	if rcfg == nil {
		rcfg = &RedisConfig{}
	}

	client := rcfg.Client
	closeClient := rcfg.CloseClient
	if client == nil {
		addr := coalesce(rcfg.Addr, os.Getenv("REDIS_ADDR"))
		if addr == "" {
			return nil, fmt.Errorf("redis: no client, Addr or REDIS_ADDR")
		}
		client = goredis.NewClient(&goredis.Options{Addr: addr})
		closeClient = true
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisDetectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		if closeClient {
			_ = client.Close()
		}
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	base, err := rdprov.New(rdprov.Config{Client: client, CloseClient: closeClient})
	if err != nil {
		return nil, err
	}
	return &redisBackend{
		base:          base,
		namespace:     cfg.Namespace,
		disablePrefix: rcfg.DisableKeyPrefix,
	}, nil
}

type redisBackend struct {
	base          *rdprov.Store
	namespace     string
	disablePrefix bool
}

func (b *redisBackend) Provider() ProviderType { return ProviderRedis }

func (b *redisBackend) Store(name string) (pr.Store, error) {
	if b.disablePrefix {
		return b.base.WithPrefix(""), nil
	}
	return b.base.WithPrefix(b.namespace + ":" + name + ":"), nil
}

func (b *redisBackend) Close(ctx context.Context) error { return b.base.Close(ctx) }

// ---- bounded local (ristretto) ----

func buildLocal(_ context.Context, cfg *Config) (Backend, error) {
	lcfg := LocalConfig{}
	if cfg.Local != nil {
		lcfg = *cfg.Local
	}
	lcfg.MaxEntries = coalesce(lcfg.MaxEntries, int64(defaultLocalMaxEntries))
	lcfg.MaxCost = coalesce(lcfg.MaxCost, lcfg.MaxEntries)
	return &localBackend{cfg: lcfg}, nil
}

type localBackend struct {
	cfg LocalConfig
}

func (b *localBackend) Provider() ProviderType { return ProviderLocal }

// Store builds a private bounded cache per name; named caches never share an
// admission budget.
func (b *localBackend) Store(string) (pr.Store, error) {
	return rsprov.New(rsprov.Config{
		NumCounters:       b.cfg.MaxEntries * localCounterFactor,
		MaxCost:           b.cfg.MaxCost,
		BufferItems:       localBufferItems,
		ExpireAfterAccess: b.cfg.ExpireAfterAccess,
	})
}

func (b *localBackend) Close(context.Context) error { return nil }

// ---- bigcache ----

func buildBigCache(_ context.Context, cfg *Config) (Backend, error) {
	bcfg := BigCacheConfig{}
	if cfg.BigCache != nil {
		bcfg = *cfg.BigCache
	}
	bcfg.LifeWindow = coalesce(bcfg.LifeWindow, cfg.DefaultTTL)
	if bcfg.LifeWindow <= 0 {
		bcfg.LifeWindow = 10 * time.Minute // bigcache requires a life window
	}
	return &bigcacheBackend{cfg: bcfg}, nil
}

type bigcacheBackend struct {
	cfg BigCacheConfig
}

func (b *bigcacheBackend) Provider() ProviderType { return ProviderBigCache }

func (b *bigcacheBackend) Store(string) (pr.Store, error) {
	return bcprov.New(bcprov.Config{
		LifeWindow:         b.cfg.LifeWindow,
		CleanWindow:        b.cfg.CleanWindow,
		MaxEntrySize:       b.cfg.MaxEntrySize,
		HardMaxCacheSizeMB: b.cfg.HardMaxCacheSizeMB,
	})
}

func (b *bigcacheBackend) Close(context.Context) error { return nil }

// ---- memory fallback ----

func buildMemory(_ context.Context, cfg *Config) (Backend, error) {
	sweep := time.Duration(0)
	if cfg.DefaultTTL > 0 {
		sweep = memorySweep
	}
	return &memoryBackend{sweep: sweep}, nil
}

type memoryBackend struct {
	sweep time.Duration
}

func (b *memoryBackend) Provider() ProviderType { return ProviderMemory }

func (b *memoryBackend) Store(string) (pr.Store, error) {
	return memprov.New(memprov.Config{SweepInterval: b.sweep}), nil
}

func (b *memoryBackend) Close(context.Context) error { return nil }
