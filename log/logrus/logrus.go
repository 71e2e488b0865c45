// Package logrus bridges sirupsen/logrus to the cacheops Logger seam.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/cacheops"
)

var _ cacheops.Logger = LogrusLogger{}

// New scopes l with a component field so cache events are distinguishable in
// the application's shared log stream.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "cacheops")}
}

// LogrusLogger forwards to an existing *logrus.Entry. Use New for the scoped
// default, or set E directly to attach your own context fields.
type LogrusLogger struct{ E *logrus.Entry }

func (l LogrusLogger) Debug(msg string, f cacheops.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f cacheops.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f cacheops.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f cacheops.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f cacheops.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
