// Package sloghook logs cache events through log/slog, with sampling for the
// high-frequency ones. Pair with hooks/async to keep logging off hot paths.
package sloghook

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/cacheops"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery      uint64
	MissEvery     uint64
	SelfHealEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr      atomic.Uint64
	missCtr     atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ cacheops.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(cache, key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("cacheops.hit", "cache", cache, "key", h.redact(key))
}

func (h *Hooks) Miss(cache, key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("cacheops.miss", "cache", cache, "key", h.redact(key))
}

func (h *Hooks) SelfHeal(cache, key, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("cacheops.self_heal",
		"cache", cache,
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) SetRejected(cache, key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheops.set_rejected",
		"cache", cache,
		"key", h.redact(key))
}

func (h *Hooks) Evicted(cache, key string, all bool) {
	if h.l == nil {
		return
	}
	h.l.Debug("cacheops.evicted",
		"cache", cache,
		"key", h.redact(key),
		"all", all)
}

func (h *Hooks) ProviderSelected(provider string, forced bool) {
	if h.l == nil {
		return
	}
	h.l.Info("cacheops.provider_selected",
		"provider", provider,
		"forced", forced)
}

func (h *Hooks) LoadError(cache, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("cacheops.load_error",
		"cache", cache,
		"key", h.redact(key),
		"err", err)
}
