package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/cacheops"
)

func TestScopedLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("put rejected", cacheops.Fields{"cache": "users", "key": "k"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "cacheops" {
		t.Fatalf("logger name = %q, want cacheops", e.LoggerName)
	}
	if e.Level != zapcore.WarnLevel || e.Message != "put rejected" {
		t.Fatalf("entry = %v %q", e.Level, e.Message)
	}
	got := e.ContextMap()
	if got["cache"] != "users" || got["key"] != "k" {
		t.Fatalf("fields = %v", got)
	}
}

func TestErrFieldGetsErrorTreatment(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Error("store unreachable", cacheops.Fields{"err": errors.New("dial timeout")})

	got := logs.All()[0].ContextMap()
	if got["error"] != "dial timeout" {
		t.Fatalf("fields = %v, want an error field", got)
	}
}

func TestEmptyFieldsProduceNoContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("created cache", nil)

	if n := len(logs.All()[0].Context); n != 0 {
		t.Fatalf("context fields = %d, want 0", n)
	}
}
