package cacheops

import (
	"context"
	"fmt"
	"reflect"

	"golang.org/x/sync/singleflight"

	cd "github.com/unkn0wn-root/cacheops/codec"
)

// Mode declares what a cached operation does with its caches.
type Mode int

const (
	// ModeCacheable reads through the cache: a hit returns the stored result
	// without invoking the operation; a miss invokes it and stores the
	// result.
	ModeCacheable Mode = iota

	// ModePut always invokes the operation and then overwrites the cached
	// entry with its result (write-through refresh).
	ModePut

	// ModeEvict removes the resolved key (or the whole cache with EvictAll)
	// around the invocation.
	ModeEvict

	// ModeNone is a true pass-through: the operation is invoked directly
	// with zero cache interaction.
	ModeNone
)

// Operation is the wrapped computation. Failures propagate unchanged and are
// never cached.
type Operation[V any] func(ctx context.Context, args ...any) (V, error)

// Condition gates caching on the invocation arguments. When any configured
// condition is false the operation is invoked directly, with no cache
// interaction at all.
type Condition func(args []any) bool

// OpConfig declares how one operation is cached.
type OpConfig struct {
	// Name identifies the operation in logs and is passed to the key
	// generator. Defaults to the first cache name.
	Name string

	// Caches are the cache name(s) this operation uses. Cacheable reads stop
	// at the first hit; writes and evictions apply to all of them.
	Caches []string

	Mode Mode

	// Key replaces the default key generator entirely for this operation.
	Key KeyGenerator

	Conditions []Condition

	// Sync deduplicates concurrent misses per key: at most one invocation
	// runs, the rest wait for its result.
	Sync bool

	// EvictAll clears the whole cache(s) instead of one key.
	EvictAll bool

	// EvictBeforeInvoke runs the eviction before the operation ("value about
	// to become stale"). The default is after a successful invocation.
	EvictBeforeInvoke bool

	// EvictOnFailure also runs an after-invocation eviction when the
	// operation fails. Off by default: a failed operation skips the
	// eviction.
	EvictOnFailure bool
}

// CachedOp wraps one operation with the caching pipeline. Build it once at
// startup with NewOp and call Invoke at every call site; it is safe for
// concurrent use.
type CachedOp[V any] struct {
	m     *Manager
	cfg   OpConfig
	codec cd.Codec[V]
	op    Operation[V]
	keyer KeyGenerator
	log   Logger
	sf    singleflight.Group
}

// NewOp validates the declaration and binds fn to the manager's caches.
func NewOp[V any](m *Manager, cfg OpConfig, codec cd.Codec[V], fn Operation[V]) (*CachedOp[V], error) {
	if m == nil {
		return nil, fmt.Errorf("cacheops: manager is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("cacheops: operation is required")
	}
	if cfg.Mode != ModeNone {
		if len(cfg.Caches) == 0 {
			return nil, fmt.Errorf("cacheops: at least one cache name is required")
		}
		if codec == nil && cfg.Mode != ModeEvict {
			return nil, fmt.Errorf("cacheops: codec is required for cacheable/put operations")
		}
	}
	o := &CachedOp[V]{
		m:     m,
		cfg:   cfg,
		codec: codec,
		op:    fn,
		log:   m.log,
	}
	if o.log == nil {
		o.log = NopLogger{}
	}
	o.cfg.Name = coalesce(o.cfg.Name, firstOr(cfg.Caches, "op"))
	o.keyer = cfg.Key
	if o.keyer == nil {
		o.keyer = DefaultKeyGenerator{}
	}
	return o, nil
}

// Invoke runs the operation through the declared caching mode.
func (o *CachedOp[V]) Invoke(ctx context.Context, args ...any) (V, error) {
	if o.cfg.Mode == ModeNone || o.m.Disabled() {
		return o.op(ctx, args...)
	}
	if !o.conditionsPass(args) {
		return o.op(ctx, args...)
	}
	switch o.cfg.Mode {
	case ModePut:
		return o.putMode(ctx, args)
	case ModeEvict:
		return o.evictMode(ctx, args)
	default:
		return o.cacheableMode(ctx, args)
	}
}

func (o *CachedOp[V]) cacheableMode(ctx context.Context, args []any) (V, error) {
	var zero V
	caches, err := o.resolve()
	if err != nil {
		return zero, err
	}
	key, err := o.generateKey(args)
	if err != nil {
		return zero, err
	}

	for _, c := range caches {
		payload, nilValue, ok, gerr := c.Get(ctx, key)
		if gerr != nil {
			if o.m.degrade {
				o.log.Warn("cache read failed; degrading to direct invocation",
					Fields{"op": o.cfg.Name, "cache": c.name, "key": key, "err": gerr})
				return o.op(ctx, args...)
			}
			return zero, gerr
		}
		if !ok {
			continue
		}
		if nilValue {
			return zero, nil // cached nil result
		}
		v, derr := o.codec.Decode(payload)
		if derr != nil {
			c.selfHeal(ctx, key, "decode")
			o.log.Debug("dropped undecodable entry", Fields{"op": o.cfg.Name, "cache": c.name, "key": key})
			continue
		}
		return v, nil
	}

	if !o.cfg.Sync {
		return o.invokeAndStore(ctx, caches, key, args)
	}
	res, err, _ := o.sf.Do(key, func() (any, error) {
		return o.invokeAndStore(ctx, caches, key, args)
	})
	if err != nil {
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

// invokeAndStore runs the operation and writes its result with put-if-absent
// semantics, so a concurrent first writer is not clobbered on stores with
// atomic claims.
func (o *CachedOp[V]) invokeAndStore(ctx context.Context, caches []*Cache, key string, args []any) (V, error) {
	var zero V
	v, err := o.op(ctx, args...)
	if err != nil {
		return zero, err // nothing is cached for a failed invocation
	}
	payload, nilValue, err := o.encode(v)
	if err != nil {
		return zero, err
	}
	for _, c := range caches {
		if _, _, _, perr := c.PutIfAbsent(ctx, key, payload, nilValue); perr != nil {
			return zero, perr
		}
	}
	return v, nil
}

func (o *CachedOp[V]) putMode(ctx context.Context, args []any) (V, error) {
	var zero V
	caches, err := o.resolve()
	if err != nil {
		return zero, err
	}
	key, err := o.generateKey(args)
	if err != nil {
		return zero, err
	}
	v, err := o.op(ctx, args...) // always invoked, regardless of cache state
	if err != nil {
		return zero, err
	}
	payload, nilValue, err := o.encode(v)
	if err != nil {
		return zero, err
	}
	for _, c := range caches {
		if perr := c.Put(ctx, key, payload, nilValue); perr != nil {
			return zero, perr
		}
	}
	return v, nil
}

func (o *CachedOp[V]) evictMode(ctx context.Context, args []any) (V, error) {
	var zero V
	caches, err := o.resolve()
	if err != nil {
		return zero, err
	}
	var key string
	if !o.cfg.EvictAll {
		if key, err = o.generateKey(args); err != nil {
			return zero, err
		}
	}

	if o.cfg.EvictBeforeInvoke {
		if err := o.evict(ctx, caches, key); err != nil {
			return zero, err
		}
		return o.op(ctx, args...)
	}

	v, err := o.op(ctx, args...)
	if err != nil {
		if o.cfg.EvictOnFailure {
			if eerr := o.evict(ctx, caches, key); eerr != nil {
				o.log.Warn("eviction after failed invocation also failed",
					Fields{"op": o.cfg.Name, "err": eerr})
			}
		}
		return zero, err
	}
	if err := o.evict(ctx, caches, key); err != nil {
		return zero, err
	}
	return v, nil
}

func (o *CachedOp[V]) evict(ctx context.Context, caches []*Cache, key string) error {
	for _, c := range caches {
		var err error
		if o.cfg.EvictAll {
			err = c.Clear(ctx)
		} else {
			err = c.Evict(ctx, key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *CachedOp[V]) resolve() ([]*Cache, error) {
	caches := make([]*Cache, 0, len(o.cfg.Caches))
	for _, name := range o.cfg.Caches {
		c, ok, err := o.m.Cache(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &UnknownCacheError{Name: name}
		}
		caches = append(caches, c)
	}
	return caches, nil
}

func (o *CachedOp[V]) generateKey(args []any) (string, error) {
	key, err := o.keyer.Generate(o.cfg.Name, args)
	if err != nil {
		return "", fmt.Errorf("cacheops: key generation for %s: %w", o.cfg.Name, err)
	}
	return key, nil
}

func (o *CachedOp[V]) encode(v V) (payload []byte, nilValue bool, err error) {
	if isNilValue(v) {
		return nil, true, nil
	}
	payload, err = o.codec.Encode(v)
	if err != nil {
		return nil, false, fmt.Errorf("cacheops: encode for %s: %w", o.cfg.Name, err)
	}
	return payload, false, nil
}

func (o *CachedOp[V]) conditionsPass(args []any) bool {
	for _, cond := range o.cfg.Conditions {
		if cond != nil && !cond(args) {
			return false
		}
	}
	return true
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func firstOr(s []string, def string) string {
	if len(s) > 0 {
		return s[0]
	}
	return def
}
