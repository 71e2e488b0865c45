// Package zap bridges go.uber.org/zap to the cacheops Logger seam.
package zap

import (
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheops"
)

var _ cacheops.Logger = ZapLogger{}

// New scopes l under a "cacheops" named logger so cache events can be
// filtered (and level-tuned via zap's name-based level overrides) without
// touching the application's root logger.
func New(l *zap.Logger) ZapLogger {
	return ZapLogger{L: l.Named("cacheops")}
}

// ZapLogger forwards to an existing *zap.Logger. Use New for the scoped
// default, or set L directly to keep your own naming.
type ZapLogger struct{ L *zap.Logger }

func (z ZapLogger) Debug(msg string, f cacheops.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f cacheops.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f cacheops.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f cacheops.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f cacheops.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		// errors get zap's error treatment (stacktrace-friendly key handling)
		if err, ok := v.(error); ok && k == "err" {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
