// Package asynchook decorates a Hooks implementation with a bounded queue and
// worker pool, so slow consumers never block the cache's hot paths. Events
// are dropped when the queue is full.
//
// usage:
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	mgr, _ := cacheops.New(ctx, cacheops.Config{Hooks: hooks})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/cacheops"
)

type Hooks struct {
	inner cacheops.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ cacheops.Hooks = (*Hooks)(nil)

func New(inner cacheops.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Hit(c, k string)             { h.try(func() { h.inner.Hit(c, k) }) }
func (h *Hooks) Miss(c, k string)            { h.try(func() { h.inner.Miss(c, k) }) }
func (h *Hooks) SelfHeal(c, k, r string)     { h.try(func() { h.inner.SelfHeal(c, k, r) }) }
func (h *Hooks) SetRejected(c, k string)     { h.try(func() { h.inner.SetRejected(c, k) }) }
func (h *Hooks) Evicted(c, k string, a bool) { h.try(func() { h.inner.Evicted(c, k, a) }) }
func (h *Hooks) ProviderSelected(p string, f bool) {
	h.try(func() { h.inner.ProviderSelected(p, f) })
}
func (h *Hooks) LoadError(c, k string, err error) {
	h.try(func() { h.inner.LoadError(c, k, err) })
}
