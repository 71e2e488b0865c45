package cacheops

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/cacheops/internal/wire"
	pr "github.com/unkn0wn-root/cacheops/provider"
)

// LoaderFunc materializes a value on a cache miss in lieu of reporting the
// miss. The loaded bytes are stored exactly as if explicitly put.
type LoaderFunc func(ctx context.Context, key string) ([]byte, error)

// SetCostFunc computes the admission cost of an entry for cost-based stores.
type SetCostFunc func(key string, raw []byte) int64

type cacheConfig struct {
	ttl      time.Duration
	cacheNil bool
	loader   LoaderFunc
	cost     SetCostFunc
}

// Cache is a named wrapper around one provider.Store. It adds the semantics
// the raw byte store doesn't have: wire framing with self-heal, the nil-value
// policy, loader-backed reads with stampede suppression, and put-if-absent
// race resolution.
//
// Caches are created by a Manager and share its lifetime; one Cache never
// shares its backing store with another named cache (shared backends isolate
// caches by key prefix inside the store).
type Cache struct {
	name    string
	store   pr.Store
	claimer pr.Claimer // non-nil when the store supports atomic claims
	cfg     cacheConfig
	log     Logger
	hooks   Hooks
	sf      singleflight.Group
}

func newCache(name string, store pr.Store, cfg cacheConfig, log Logger, hooks Hooks) *Cache {
	claimer, _ := store.(pr.Claimer)
	if cfg.cost == nil {
		cfg.cost = func(_ string, _ []byte) int64 { return 1 }
	}
	return &Cache{
		name:    name,
		store:   store,
		claimer: claimer,
		cfg:     cfg,
		log:     log,
		hooks:   hooks,
	}
}

func (c *Cache) Name() string { return c.name }

// Get returns the stored payload for key. nilValue reports a cached nil
// result (ok=true, empty payload). Corrupt entries are deleted and treated
// as misses. When a loader is configured, a miss invokes it under
// singleflight so concurrent callers for one key trigger a single load.
func (c *Cache) Get(ctx context.Context, key string) (payload []byte, nilValue bool, ok bool, err error) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false, false, &StoreError{Cache: c.name, Op: "get", Key: key, Err: err}
	}
	if found {
		flags, p, derr := wire.Decode(raw)
		if derr != nil {
			_ = c.store.Del(ctx, key) // self-heal corrupt
			c.hooks.SelfHeal(c.name, key, "corrupt")
			c.log.Debug("dropped corrupt entry", Fields{"cache": c.name, "key": key})
		} else {
			c.hooks.Hit(c.name, key)
			return p, flags&wire.FlagNil != 0, true, nil
		}
	}
	c.hooks.Miss(c.name, key)
	if c.cfg.loader == nil {
		return nil, false, false, nil
	}
	return c.load(ctx, key)
}

func (c *Cache) load(ctx context.Context, key string) ([]byte, bool, bool, error) {
	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, err := c.cfg.loader(ctx, key)
		if err != nil {
			return nil, err
		}
		if perr := c.Put(ctx, key, b, false); perr != nil {
			// loaded value is still good for the caller
			c.log.Warn("storing loaded value failed", Fields{"cache": c.name, "key": key, "err": perr})
		}
		return b, nil
	})
	if err != nil {
		c.hooks.LoadError(c.name, key, err)
		return nil, false, false, &StoreError{Cache: c.name, Op: "load", Key: key, Err: err}
	}
	b, _ := v.([]byte)
	return b, false, true, nil
}

// Put stores payload under key, overwriting unconditionally. A nil result is
// stored as a flagged empty entry when the nil policy allows it; otherwise
// the put is silently declined (not an error).
func (c *Cache) Put(ctx context.Context, key string, payload []byte, nilValue bool) error {
	raw, skip := c.frame(key, payload, nilValue)
	if skip {
		return nil
	}
	ok, err := c.store.Set(ctx, key, raw, c.cfg.cost(key, raw), c.cfg.ttl)
	if err != nil {
		return &StoreError{Cache: c.name, Op: "put", Key: key, Err: err}
	}
	if !ok {
		c.hooks.SetRejected(c.name, key)
		c.log.Debug("put rejected by store (pressure)", Fields{"cache": c.name, "key": key})
	}
	return nil
}

// PutIfAbsent stores payload only when key is absent. With a Claimer store
// the check-and-write is atomic and exactly one concurrent writer wins; prev
// then holds the winner's payload. Stores without atomic claims degrade to a
// read-then-write: racing writers may both write and the last one wins.
func (c *Cache) PutIfAbsent(ctx context.Context, key string, payload []byte, nilValue bool) (prev []byte, prevNil bool, stored bool, err error) {
	raw, skip := c.frame(key, payload, nilValue)
	if skip {
		return nil, false, false, nil
	}

	if c.claimer != nil {
		prevRaw, claimed, err := c.claimer.SetNX(ctx, key, raw, c.cfg.cost(key, raw), c.cfg.ttl)
		if err != nil {
			return nil, false, false, &StoreError{Cache: c.name, Op: "put", Key: key, Err: err}
		}
		if claimed {
			return nil, false, true, nil
		}
		if prevRaw == nil {
			return nil, false, false, nil
		}
		flags, p, derr := wire.Decode(prevRaw)
		if derr != nil {
			_ = c.store.Del(ctx, key)
			c.hooks.SelfHeal(c.name, key, "corrupt")
			return nil, false, false, nil
		}
		return p, flags&wire.FlagNil != 0, false, nil
	}

	if existing, found, gerr := c.store.Get(ctx, key); gerr == nil && found {
		if flags, p, derr := wire.Decode(existing); derr == nil {
			return p, flags&wire.FlagNil != 0, false, nil
		}
	}
	ok, err := c.store.Set(ctx, key, raw, c.cfg.cost(key, raw), c.cfg.ttl)
	if err != nil {
		return nil, false, false, &StoreError{Cache: c.name, Op: "put", Key: key, Err: err}
	}
	if !ok {
		c.hooks.SetRejected(c.name, key)
	}
	return nil, false, ok, nil
}

// Evict removes key. Absent keys are a no-op.
func (c *Cache) Evict(ctx context.Context, key string) error {
	if err := c.store.Del(ctx, key); err != nil {
		return &StoreError{Cache: c.name, Op: "evict", Key: key, Err: err}
	}
	c.hooks.Evicted(c.name, key, false)
	return nil
}

// Clear removes every entry of this cache. Empty caches are a no-op.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return &StoreError{Cache: c.name, Op: "clear", Err: err}
	}
	c.hooks.Evicted(c.name, "", true)
	return nil
}

func (c *Cache) close(ctx context.Context) error {
	return c.store.Close(ctx)
}

// selfHeal drops an entry the reader could not use (best effort).
func (c *Cache) selfHeal(ctx context.Context, key, reason string) {
	_ = c.store.Del(ctx, key)
	c.hooks.SelfHeal(c.name, key, reason)
}

// frame applies the nil policy and wraps payload in the wire format.
// skip=true means the nil policy declined the write.
func (c *Cache) frame(key string, payload []byte, nilValue bool) (raw []byte, skip bool) {
	var flags byte
	if nilValue {
		if !c.cfg.cacheNil {
			c.log.Debug("declining nil result (nil policy)", Fields{"cache": c.name, "key": key})
			return nil, true
		}
		flags |= wire.FlagNil
		payload = nil
	}
	return wire.Encode(flags, payload), false
}
