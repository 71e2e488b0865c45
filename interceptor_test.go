package cacheops

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	cd "github.com/unkn0wn-root/cacheops/codec"
)

func newCacheableOp(t *testing.T, m *Manager, cfg OpConfig, fn Operation[string]) *CachedOp[string] {
	t.Helper()
	op, err := NewOp[string](m, cfg, cd.String{}, fn)
	if err != nil {
		t.Fatalf("NewOp: %v", err)
	}
	return op
}

// ==============================
// Cacheable mode
// ==============================

// TestCacheableHitAvoidsRecompute is the canonical read-through flow: first
// call computes and stores, the second returns the stored value without
// recomputation, a different argument misses independently.
func TestCacheableHitAvoidsRecompute(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	defer m.Close(ctx)

	var calls atomic.Int64
	op := newCacheableOp(t, m, OpConfig{Caches: []string{"piDecimals"}},
		func(_ context.Context, args ...any) (string, error) {
			calls.Add(1)
			return fmt.Sprintf("%.2f", math.Sqrt(float64(args[0].(int)))), nil
		})

	v1, err := op.Invoke(ctx, 2)
	if err != nil || v1 != "1.41" {
		t.Fatalf("first call: v=%q err=%v", v1, err)
	}
	v2, err := op.Invoke(ctx, 2)
	if err != nil || v2 != v1 {
		t.Fatalf("second call: v=%q err=%v", v2, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("operation ran %d times, want 1", calls.Load())
	}

	if _, err := op.Invoke(ctx, 3); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("distinct argument did not recompute (calls=%d)", calls.Load())
	}
}

func TestCacheableNoFalseHits(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	defer m.Close(ctx)

	op := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}},
		func(_ context.Context, args ...any) (string, error) {
			return fmt.Sprint(args[0]), nil
		})

	if v, _ := op.Invoke(ctx, 1); v != "1" {
		t.Fatalf("Invoke(1) = %q", v)
	}
	if v, _ := op.Invoke(ctx, 2); v != "2" {
		t.Fatalf("Invoke(2) = %q; a different argument must not hit the old entry", v)
	}
	// same value, different type: must be an independent miss, not a hit
	if v, _ := op.Invoke(ctx, "1"); v != "1" {
		t.Fatalf("Invoke(\"1\") = %q", v)
	}
}

func TestFailedInvocationIsNotCached(t *testing.T) {
	ctx := context.Background()
	m, fb := newTestManager(t, nil)
	defer m.Close(ctx)

	var calls atomic.Int64
	boom := errors.New("compute failed")
	fail := true
	op := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}},
		func(context.Context, ...any) (string, error) {
			calls.Add(1)
			if fail {
				return "", boom
			}
			return "ok", nil
		})

	if _, err := op.Invoke(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("failure not propagated: %v", err)
	}
	if n := fb.store(t, "c").sets.Load(); n != 0 {
		t.Fatalf("a failed invocation wrote %d entries", n)
	}

	// the next call retries the operation
	fail = false
	if v, err := op.Invoke(ctx, "k"); err != nil || v != "ok" {
		t.Fatalf("retry: v=%q err=%v", v, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

// TestSyncDeduplicatesConcurrentMisses: with Sync, concurrent callers of one
// key share a single invocation.
func TestSyncDeduplicatesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	defer m.Close(ctx)

	var calls atomic.Int64
	op := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}, Sync: true},
		func(context.Context, ...any) (string, error) {
			calls.Add(1)
			time.Sleep(100 * time.Millisecond)
			return "v", nil
		})

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if v, err := op.Invoke(ctx, "hot"); err != nil || v != "v" {
				t.Errorf("Invoke: v=%q err=%v", v, err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("operation ran %d times under Sync, want 1", calls.Load())
	}
}

// ==============================
// Nil-value policy
// ==============================

func TestNilResultCachedByDefault(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	defer m.Close(ctx)

	var calls atomic.Int64
	op, err := NewOp[*string](m, OpConfig{Caches: []string{"c"}}, cd.JSON[*string]{},
		func(context.Context, ...any) (*string, error) {
			calls.Add(1)
			return nil, nil
		})
	if err != nil {
		t.Fatalf("NewOp: %v", err)
	}

	if v, err := op.Invoke(ctx, "k"); err != nil || v != nil {
		t.Fatalf("first call: v=%v err=%v", v, err)
	}
	if v, err := op.Invoke(ctx, "k"); err != nil || v != nil {
		t.Fatalf("second call: v=%v err=%v", v, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("cached nil did not suppress recomputation (calls=%d)", calls.Load())
	}
}

func TestNilRejectionStillReturnsNil(t *testing.T) {
	ctx := context.Background()
	m, fb := newTestManager(t, func(b *Builder) *Builder { return b.WithNilCaching(false) })
	defer m.Close(ctx)

	var calls atomic.Int64
	op, err := NewOp[*string](m, OpConfig{Caches: []string{"c"}}, cd.JSON[*string]{},
		func(context.Context, ...any) (*string, error) {
			calls.Add(1)
			return nil, nil
		})
	if err != nil {
		t.Fatalf("NewOp: %v", err)
	}

	if v, err := op.Invoke(ctx, "k"); err != nil || v != nil {
		t.Fatalf("first call: v=%v err=%v", v, err)
	}
	if v, err := op.Invoke(ctx, "k"); err != nil || v != nil {
		t.Fatalf("second call: v=%v err=%v", v, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("rejected nil must not hit (calls=%d)", calls.Load())
	}
	if n := fb.store(t, "c").sets.Load(); n != 0 {
		t.Fatalf("nil result stored %d times with rejection configured", n)
	}
}

// ==============================
// Put mode
// ==============================

func TestPutModeAlwaysInvokesAndOverwrites(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	defer m.Close(ctx)

	var calls atomic.Int64
	current := "v1"
	refresh := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}, Mode: ModePut},
		func(context.Context, ...any) (string, error) {
			calls.Add(1)
			return current, nil
		})
	read := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}},
		func(context.Context, ...any) (string, error) {
			t.Fatalf("read should be served from cache")
			return "", nil
		})

	if _, err := refresh.Invoke(ctx, "k"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	current = "v2"
	if _, err := refresh.Invoke(ctx, "k"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("put mode skipped an invocation (calls=%d)", calls.Load())
	}

	// the cacheable reader sees the refreshed value
	if v, err := read.Invoke(ctx, "k"); err != nil || v != "v2" {
		t.Fatalf("read after refresh: v=%q err=%v", v, err)
	}
}

// ==============================
// Evict mode
// ==============================

func TestEvictForcesRecompute(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	defer m.Close(ctx)

	var calls atomic.Int64
	read := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}},
		func(_ context.Context, args ...any) (string, error) {
			calls.Add(1)
			return fmt.Sprint(args[0]), nil
		})
	drop := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}, Mode: ModeEvict},
		func(context.Context, ...any) (string, error) { return "", nil })

	read.Invoke(ctx, 7)
	read.Invoke(ctx, 7)
	if calls.Load() != 1 {
		t.Fatalf("warmup: calls=%d", calls.Load())
	}

	if _, err := drop.Invoke(ctx, 7); err != nil {
		t.Fatalf("evict: %v", err)
	}
	read.Invoke(ctx, 7)
	if calls.Load() != 2 {
		t.Fatalf("eviction did not force recompute (calls=%d)", calls.Load())
	}
}

func TestEvictAllClearsCache(t *testing.T) {
	ctx := context.Background()
	m, fb := newTestManager(t, nil)
	defer m.Close(ctx)

	read := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}},
		func(_ context.Context, args ...any) (string, error) { return fmt.Sprint(args[0]), nil })
	dropAll := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}, Mode: ModeEvict, EvictAll: true},
		func(context.Context, ...any) (string, error) { return "", nil })

	read.Invoke(ctx, 1)
	read.Invoke(ctx, 2)
	if fb.store(t, "c").len() != 2 {
		t.Fatalf("warmup did not populate")
	}

	if _, err := dropAll.Invoke(ctx); err != nil {
		t.Fatalf("evict all: %v", err)
	}
	if fb.store(t, "c").len() != 0 {
		t.Fatalf("evict-all left entries")
	}
}

// After-invocation eviction (the default) is skipped when the operation
// fails; before-invocation eviction runs regardless.
func TestEvictionTimingAroundFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("nope")

	t.Run("after skips on failure", func(t *testing.T) {
		m, fb := newTestManager(t, nil)
		defer m.Close(ctx)

		mustCache(t, m, "c").Put(ctx, keyFor(t, 7), []byte("stale"), false)
		drop := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}, Mode: ModeEvict},
			func(context.Context, ...any) (string, error) { return "", boom })

		if _, err := drop.Invoke(ctx, 7); !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		if fb.store(t, "c").len() != 1 {
			t.Fatalf("after-invocation eviction ran despite the failure")
		}
	})

	t.Run("before runs despite failure", func(t *testing.T) {
		m, fb := newTestManager(t, nil)
		defer m.Close(ctx)

		mustCache(t, m, "c").Put(ctx, keyFor(t, 7), []byte("stale"), false)
		drop := newCacheableOp(t, m,
			OpConfig{Caches: []string{"c"}, Mode: ModeEvict, EvictBeforeInvoke: true},
			func(context.Context, ...any) (string, error) { return "", boom })

		if _, err := drop.Invoke(ctx, 7); !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		if fb.store(t, "c").len() != 0 {
			t.Fatalf("before-invocation eviction did not run")
		}
	})

	t.Run("after runs on failure when configured", func(t *testing.T) {
		m, fb := newTestManager(t, nil)
		defer m.Close(ctx)

		mustCache(t, m, "c").Put(ctx, keyFor(t, 7), []byte("stale"), false)
		drop := newCacheableOp(t, m,
			OpConfig{Caches: []string{"c"}, Mode: ModeEvict, EvictOnFailure: true},
			func(context.Context, ...any) (string, error) { return "", boom })

		if _, err := drop.Invoke(ctx, 7); !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		if fb.store(t, "c").len() != 0 {
			t.Fatalf("EvictOnFailure did not evict")
		}
	})
}

// ==============================
// Unknown caches / restricted mode
// ==============================

// Declaring an operation against an unlisted cache is fine; only executing
// it fails. This mirrors the registry's fail-late policy.
func TestUnknownCacheFailsAtInvokeNotAtSetup(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, func(b *Builder) *Builder {
		return b.WithCacheNames("cache1", "cache2")
	})
	defer m.Close(ctx)

	op, err := NewOp[string](m, OpConfig{Caches: []string{"cache3"}}, cd.String{},
		func(context.Context, ...any) (string, error) { return "v", nil })
	if err != nil {
		t.Fatalf("NewOp must not validate cache names eagerly: %v", err)
	}

	_, err = op.Invoke(ctx, "k")
	var uerr *UnknownCacheError
	if !errors.As(err, &uerr) || uerr.Name != "cache3" {
		t.Fatalf("expected UnknownCacheError for cache3, got %v", err)
	}
}

// ==============================
// Pass-through / disabled
// ==============================

func TestModeNoneIsTrueNoop(t *testing.T) {
	ctx := context.Background()
	m, fb := newTestManager(t, nil)
	defer m.Close(ctx)
	mustCache(t, m, "c") // force store creation so we can assert zero traffic

	var calls atomic.Int64
	op := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}, Mode: ModeNone},
		func(context.Context, ...any) (string, error) {
			calls.Add(1)
			return "v", nil
		})

	op.Invoke(ctx, "k")
	op.Invoke(ctx, "k")
	if calls.Load() != 2 {
		t.Fatalf("pass-through must invoke every time (calls=%d)", calls.Load())
	}
	fs := fb.store(t, "c")
	if fs.gets.Load() != 0 || fs.sets.Load() != 0 {
		t.Fatalf("pass-through touched the store (gets=%d sets=%d)", fs.gets.Load(), fs.sets.Load())
	}
}

func TestDisabledManagerBypassesCaching(t *testing.T) {
	ctx := context.Background()
	m := &Manager{disabled: true, log: NopLogger{}, hooks: NopHooks{}}

	var calls atomic.Int64
	op := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}},
		func(context.Context, ...any) (string, error) {
			calls.Add(1)
			return "v", nil
		})

	op.Invoke(ctx, "k")
	op.Invoke(ctx, "k")
	if calls.Load() != 2 {
		t.Fatalf("disabled manager must not cache (calls=%d)", calls.Load())
	}
}

// ==============================
// Conditions, custom keys, degradation
// ==============================

func TestConditionGateSkipsCaching(t *testing.T) {
	ctx := context.Background()
	m, fb := newTestManager(t, nil)
	defer m.Close(ctx)
	mustCache(t, m, "c")

	var calls atomic.Int64
	op := newCacheableOp(t, m, OpConfig{
		Caches:     []string{"c"},
		Conditions: []Condition{func(args []any) bool { return args[0].(int) < 10 }},
	}, func(_ context.Context, args ...any) (string, error) {
		calls.Add(1)
		return fmt.Sprint(args[0]), nil
	})

	op.Invoke(ctx, 42)
	op.Invoke(ctx, 42)
	if calls.Load() != 2 {
		t.Fatalf("gated invocation was cached (calls=%d)", calls.Load())
	}
	if fb.store(t, "c").sets.Load() != 0 {
		t.Fatalf("gated invocation wrote to the store")
	}

	// under the threshold, caching applies
	op.Invoke(ctx, 5)
	op.Invoke(ctx, 5)
	if calls.Load() != 3 {
		t.Fatalf("ungated invocation did not cache (calls=%d)", calls.Load())
	}
}

func TestCustomKeyGeneratorReplacesDefault(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	defer m.Close(ctx)

	var calls atomic.Int64
	op := newCacheableOp(t, m, OpConfig{
		Caches: []string{"c"},
		Key: KeyGeneratorFunc(func(op string, args []any) (string, error) {
			return op + ":fixed", nil // collapse every argument onto one key
		}),
	}, func(_ context.Context, args ...any) (string, error) {
		calls.Add(1)
		return fmt.Sprint(args[0]), nil
	})

	v1, _ := op.Invoke(ctx, 1)
	v2, _ := op.Invoke(ctx, 2)
	if calls.Load() != 1 || v1 != v2 {
		t.Fatalf("custom generator not used exclusively (calls=%d v1=%q v2=%q)", calls.Load(), v1, v2)
	}
}

func TestStoreErrorPropagatesByDefault(t *testing.T) {
	ctx := context.Background()
	m, fb := newTestManager(t, nil)
	defer m.Close(ctx)
	mustCache(t, m, "c").Put(ctx, "warm", []byte("v"), false)

	var calls atomic.Int64
	op := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}},
		func(context.Context, ...any) (string, error) {
			calls.Add(1)
			return "computed", nil
		})

	fb.store(t, "c").failGet = errors.New("backend down")
	_, err := op.Invoke(ctx, "k")
	var serr *StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("operation must not run on a failed get without explicit degradation")
	}
}

func TestDegradeOnStoreErrorInvokesDirectly(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBackend()
	cfg, _ := Config{DegradeOnStoreError: true}.normalize()
	b := newBuilder(fb, &cfg, false)
	m, err := b.Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer m.Close(ctx)
	mustCache(t, m, "c")

	var calls atomic.Int64
	op := newCacheableOp(t, m, OpConfig{Caches: []string{"c"}},
		func(context.Context, ...any) (string, error) {
			calls.Add(1)
			return "computed", nil
		})

	fb.store(t, "c").failGet = errors.New("backend down")
	v, err := op.Invoke(ctx, "k")
	if err != nil || v != "computed" {
		t.Fatalf("degraded invocation: v=%q err=%v", v, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

// keyFor reproduces the default key for one argument, for tests that need to
// seed the store directly.
func keyFor(t *testing.T, arg any) string {
	t.Helper()
	k, err := DefaultKeyGenerator{}.Generate("", []any{arg})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return k
}
