package cacheops

import (
	"fmt"
)

// UnknownCacheError is returned when an operation names a cache the registry
// does not manage. With a Restricted registry this surfaces at the first
// invocation that uses the name, never at startup.
type UnknownCacheError struct {
	Name string
}

func (e *UnknownCacheError) Error() string {
	return fmt.Sprintf("cacheops: cache %q is not managed by this registry", e.Name)
}

// ConfigError is a fatal startup error: ambiguous provider configuration, an
// unknown forced provider, or a forced provider that failed to build.
// It is never deferred to use time.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cacheops: config: %s: %v", e.Reason, e.Err)
	}
	return "cacheops: config: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StoreError wraps a backend failure (unreachable store, timeout) with the
// cache and operation that hit it. It propagates to the caller as a failure
// of the overall invocation; it is never silently treated as a miss.
type StoreError struct {
	Cache string
	Op    string // "get", "put", "evict", "clear"
	Key   string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cacheops: %s on cache %q failed: %v", e.Op, e.Cache, e.Err)
	}
	return fmt.Sprintf("cacheops: %s on cache %q key %q failed: %v", e.Op, e.Cache, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
