package keyutil

import (
	"testing"
)

func TestComponentIsTypeSensitive(t *testing.T) {
	if Component(1) == Component("1") {
		t.Fatalf("int 1 and string \"1\" must not collide")
	}
	if Component(int64(1)) == Component(uint64(1)) {
		t.Fatalf("int64(1) and uint64(1) must not collide")
	}
	if Component(nil) != "nil" {
		t.Fatalf("nil component = %q", Component(nil))
	}
}

func TestCompositeDeterministic(t *testing.T) {
	a := Composite([]any{"a", 1, true})
	b := Composite([]any{"a", 1, true})
	if a != b {
		t.Fatalf("same tuple produced %q and %q", a, b)
	}
}

func TestCompositeOrderSensitive(t *testing.T) {
	if Composite([]any{"a", "b"}) == Composite([]any{"b", "a"}) {
		t.Fatalf("tuple order must affect the key")
	}
}

// Length framing prevents ("ab","c") from colliding with ("a","bc").
func TestCompositeSplitResistant(t *testing.T) {
	if Composite([]any{"ab", "c"}) == Composite([]any{"a", "bc"}) {
		t.Fatalf("different splits of the same bytes collided")
	}
}

func TestCompositeArityInKey(t *testing.T) {
	two := Composite([]any{"x", "y"})
	three := Composite([]any{"x", "y", "z"})
	if two == three {
		t.Fatalf("tuples of different arity collided")
	}
}
