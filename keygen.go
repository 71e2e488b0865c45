package cacheops

import (
	"github.com/unkn0wn-root/cacheops/internal/keyutil"
)

// ZeroArgKey is the fixed key used for operations invoked without arguments.
const ZeroArgKey = "__void__"

// KeyGenerator turns an operation identity and its argument list into a cache
// key. Implementations must be deterministic and side-effect-free: the same
// arguments always yield the same key regardless of call order.
//
// An operation configured with a custom generator uses it exclusively; there
// is no blending with the default strategy.
type KeyGenerator interface {
	Generate(op string, args []any) (string, error)
}

// KeyGeneratorFunc adapts a plain function to KeyGenerator.
type KeyGeneratorFunc func(op string, args []any) (string, error)

func (f KeyGeneratorFunc) Generate(op string, args []any) (string, error) { return f(op, args) }

// DefaultKeyGenerator implements the default strategy:
//
//   - zero arguments: ZeroArgKey
//   - one argument: that argument rendered with its dynamic type, so values
//     of different types that print identically never collide
//   - multiple arguments: an order-sensitive composite hash over the tuple
//
// The operation identity is ignored: keys are already scoped by cache name.
// Supply a custom generator if two operations share a cache and need
// per-operation key separation.
type DefaultKeyGenerator struct{}

var _ KeyGenerator = DefaultKeyGenerator{}

func (DefaultKeyGenerator) Generate(_ string, args []any) (string, error) {
	switch len(args) {
	case 0:
		return ZeroArgKey, nil
	case 1:
		return keyutil.Component(args[0]), nil
	default:
		return keyutil.Composite(args), nil
	}
}
