//go:build go1.21

package slog

import (
	"context"
	stdslog "log/slog"
	"testing"

	"github.com/unkn0wn-root/cacheops"
)

type capturedRecord struct {
	level stdslog.Level
	msg   string
	attrs map[string]any
}

// captureHandler records everything it is handed, folding in attributes
// attached via Logger.With so the component scope is observable.
type captureHandler struct {
	recs  *[]capturedRecord
	attrs []stdslog.Attr
}

func (h captureHandler) Enabled(context.Context, stdslog.Level) bool { return true }

func (h captureHandler) Handle(_ context.Context, r stdslog.Record) error {
	m := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		m[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a stdslog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	*h.recs = append(*h.recs, capturedRecord{level: r.Level, msg: r.Message, attrs: m})
	return nil
}

func (h captureHandler) WithAttrs(attrs []stdslog.Attr) stdslog.Handler {
	h.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return h
}

func (h captureHandler) WithGroup(string) stdslog.Handler { return h }

func TestScopedLoggerForwardsFields(t *testing.T) {
	var recs []capturedRecord
	l := New(stdslog.New(captureHandler{recs: &recs}))

	l.Warn("store unreachable", cacheops.Fields{"cache": "users", "err": "dial timeout"})

	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.level != stdslog.LevelWarn || r.msg != "store unreachable" {
		t.Fatalf("record = %v %q", r.level, r.msg)
	}
	if r.attrs["component"] != "cacheops" {
		t.Fatalf("missing component scope: %v", r.attrs)
	}
	if r.attrs["cache"] != "users" || r.attrs["err"] != "dial timeout" {
		t.Fatalf("fields = %v", r.attrs)
	}
}

func TestLevelsMapOneToOne(t *testing.T) {
	var recs []capturedRecord
	l := New(stdslog.New(captureHandler{recs: &recs}))

	l.Debug("d", nil)
	l.Info("i", nil)
	l.Warn("w", nil)
	l.Error("e", nil)

	want := []stdslog.Level{stdslog.LevelDebug, stdslog.LevelInfo, stdslog.LevelWarn, stdslog.LevelError}
	if len(recs) != len(want) {
		t.Fatalf("records = %d, want %d", len(recs), len(want))
	}
	for i, r := range recs {
		if r.level != want[i] {
			t.Fatalf("record %d level = %v, want %v", i, r.level, want[i])
		}
	}
}
