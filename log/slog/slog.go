//go:build go1.21

// Package slog bridges the standard library's log/slog to the cacheops
// Logger seam.
package slog

import (
	"context"
	stdslog "log/slog"

	"github.com/unkn0wn-root/cacheops"
)

var _ cacheops.Logger = Logger{}

// New scopes l with a component attribute so cache events are
// distinguishable in the application's shared log stream.
func New(l *stdslog.Logger) Logger {
	return Logger{L: l.With("component", "cacheops")}
}

// Logger forwards to an existing *slog.Logger. Use New for the scoped
// default, or set L directly to keep your own attribute layout.
type Logger struct{ L *stdslog.Logger }

func (s Logger) Debug(msg string, f cacheops.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f cacheops.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f cacheops.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f cacheops.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f cacheops.Fields) {
	s.L.LogAttrs(context.Background(), level, msg, attrs(f)...)
}

func attrs(f cacheops.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for k, v := range f {
		out = append(out, stdslog.Any(k, v))
	}
	return out
}
