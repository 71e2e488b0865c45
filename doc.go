// Package cacheops is a transparent, method-level caching abstraction:
// declare an operation as cacheable once, then every invocation is
// intercepted, keyed by its arguments, and served from a named cache or
// computed and stored. Storage is decoupled behind interchangeable providers.
//
// Components:
//   - provider.Store: minimal byte store with TTL (memory map, Ristretto,
//     BigCache, Redis).
//   - Cache: a named wrapper adding nil-value policy, wire framing with
//     self-heal, loaders, and put-if-absent race resolution.
//   - Manager: the registry of named caches. Dynamic (create on demand) or
//     Restricted (fixed allow-list; unknown names fail at first use, not at
//     startup).
//   - CachedOp[V]: the interception pipeline with four modes (cacheable,
//     put, evict, none).
//
// Setup runs once at startup: configuration drives provider selection, the
// selected backend builds the Manager, and every CachedOp holds a reference
// to it. Selection walks an ordered candidate list and stops at the first
// backend it detects; the in-memory map is the always-available fallback.
//
// Typical use:
//
//	mgr, _ := cacheops.New(ctx, cacheops.Config{
//	    Local: &cacheops.LocalConfig{MaxEntries: 50_000, TTL: 10 * time.Minute},
//	})
//	defer mgr.Close(ctx)
//
//	getUser, _ := cacheops.NewOp[User](mgr, cacheops.OpConfig{
//	    Caches: []string{"users"},
//	}, codec.JSON[User]{}, func(ctx context.Context, args ...any) (User, error) {
//	    return loadUserFromDB(ctx, args[0].(string))
//	})
//
//	u, err := getUser.Invoke(ctx, "u:42") // miss computes; hit skips the DB
package cacheops
