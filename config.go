package cacheops

import (
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ProviderType names a backend implementation.
type ProviderType string

const (
	// ProviderAuto walks the candidate list and picks the first detected
	// backend (the default).
	ProviderAuto ProviderType = ""

	ProviderRedis    ProviderType = "redis"
	ProviderLocal    ProviderType = "local"
	ProviderBigCache ProviderType = "bigcache"
	ProviderMemory   ProviderType = "memory"

	// ProviderNone disables caching entirely: interceptors degrade to direct
	// invocation with zero cache interaction.
	ProviderNone ProviderType = "none"
)

const defaultNamespace = "cacheops"

// Config is the full configuration surface. Only the provider sections you
// intend to use need to be set; everything else has defaults.
//
// Setting a provider section both configures that backend and acts as its
// detection signal during auto-selection. Configuring more than one section
// without forcing Provider is ambiguous and fails fast at startup.
type Config struct {
	// Provider forces a specific backend and bypasses detection entirely.
	// If the forced backend cannot be built, startup fails (no fallback).
	Provider ProviderType

	// Namespace prefixes keys on shared keyspaces (Redis). Default "cacheops".
	Namespace string

	// CacheNames switches the registry to Restricted mode: exactly these
	// caches are created eagerly at startup, and any other name surfaces
	// UnknownCacheError at first use. Empty => Dynamic mode (caches created
	// on demand).
	CacheNames []string

	// DefaultTTL applies to every cache unless the provider section
	// overrides it. 0 means entries do not expire.
	DefaultTTL time.Duration

	// DisableNilCaching rejects nil operation results instead of storing a
	// nil marker. The caller still receives the nil result.
	DisableNilCaching bool

	// DegradeOnStoreError lets Cacheable invocations fall through to the
	// operation when the store read fails. Off by default: store failures
	// propagate to the caller.
	DegradeOnStoreError bool

	// Disabled is equivalent to Provider == ProviderNone.
	Disabled bool

	Local    *LocalConfig
	BigCache *BigCacheConfig
	Redis    *RedisConfig

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// Customizers are applied to the registry builder in registration order
	// before the Manager is finalized.
	Customizers []Customizer
}

// LocalConfig configures the bounded/TTL local provider (ristretto-backed).
type LocalConfig struct {
	// MaxEntries bounds the cache. With the default cost of 1 per entry this
	// is the maximum entry count. 0 => 10000.
	MaxEntries int64

	// MaxCost optionally replaces MaxEntries as the admission budget when
	// entries carry non-uniform costs (see SetCostFunc).
	MaxCost int64

	// TTL overrides Config.DefaultTTL for this provider.
	TTL time.Duration

	// ExpireAfterAccess measures TTL from the last read instead of the
	// write: every hit re-arms the entry.
	ExpireAfterAccess bool

	// Loader, when set, is invoked on a miss in lieu of reporting Absent.
	// Its output is cached exactly as if explicitly put; concurrent misses
	// for one key trigger a single load.
	Loader LoaderFunc

	// Cost computes per-entry admission cost. nil => 1 per entry.
	Cost SetCostFunc
}

// BigCacheConfig configures the sharded local provider. BigCache expires all
// entries after LifeWindow; per-cache TTLs do not apply.
type BigCacheConfig struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntrySize       int
	HardMaxCacheSizeMB int
}

// RedisConfig configures the distributed provider.
type RedisConfig struct {
	// Client is used when set. Otherwise a client is built from Addr (or the
	// REDIS_ADDR environment variable) and owned by the provider.
	Client goredis.UniversalClient
	Addr   string

	// TTL overrides Config.DefaultTTL for this provider.
	TTL time.Duration

	// DisableKeyPrefix shares one flat keyspace across all named caches.
	// Prefixing is on by default and is never switched off implicitly by
	// merging configs; set this explicitly if you really want collisions to
	// be possible.
	DisableKeyPrefix bool

	// CloseClient makes Manager.Close close an injected Client. Clients
	// built from Addr are always owned and closed.
	CloseClient bool
}

func (cfg Config) normalize() (Config, error) {
	if cfg.Disabled {
		cfg.Provider = ProviderNone
	}
	cfg.Namespace = coalesce(cfg.Namespace, defaultNamespace)
	cfg.Logger = coalesce[Logger](cfg.Logger, NopLogger{})
	cfg.Hooks = coalesce[Hooks](cfg.Hooks, NopHooks{})

	if cfg.Provider == ProviderAuto {
		configured := make([]string, 0, 3)
		if cfg.Redis != nil {
			configured = append(configured, string(ProviderRedis))
		}
		if cfg.Local != nil {
			configured = append(configured, string(ProviderLocal))
		}
		if cfg.BigCache != nil {
			configured = append(configured, string(ProviderBigCache))
		}
		if len(configured) > 1 {
			return cfg, &ConfigError{Reason: "multiple providers configured (" + strings.Join(configured, ", ") + ") with no explicit Provider override"}
		}
	}
	return cfg, nil
}

// ttlFor resolves the effective TTL for caches of the given provider.
func (cfg *Config) ttlFor(p ProviderType) time.Duration {
	switch p {
	case ProviderLocal:
		if cfg.Local != nil && cfg.Local.TTL > 0 {
			return cfg.Local.TTL
		}
	case ProviderRedis:
		if cfg.Redis != nil && cfg.Redis.TTL > 0 {
			return cfg.Redis.TTL
		}
	}
	return cfg.DefaultTTL
}
