package state

import (
	"testing"

	"github.com/ianhorswill/step/term"
)

func TestSetGetAndSharing(t *testing.T) {
	x := Intern("X")
	m1 := Empty.Set(x, term.Int(1))
	m2 := m1.Set(x, term.Int(2))

	v1, _ := m1.Get(x)
	v2, _ := m2.Get(x)
	if n, _ := v1.AsInt(); n != 1 {
		t.Fatalf("m1 should be unaffected by m2's update, got %v", v1)
	}
	if n, _ := v2.AsInt(); n != 2 {
		t.Fatalf("expected m2[X]=2, got %v", v2)
	}
}

func TestUndefinedVariable(t *testing.T) {
	y := Intern("Y_undeclared_no_default")
	if _, err := Empty.Get(y); err != ErrUndefined {
		t.Fatalf("expected ErrUndefined, got %v", err)
	}
}

func TestDeclaredDefault(t *testing.T) {
	z := Declare("Z_with_default", term.Int(42), true, nil)
	v, err := Empty.Get(z)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := v.AsInt(); n != 42 {
		t.Fatalf("expected default 42, got %v", v)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	a := Intern("A_roundtrip")
	b := Intern("B_roundtrip")
	m := Empty.Set(a, term.Int(1)).Set(b, term.Str("hi"))
	s := m.Serialize()
	if s == "" {
		t.Fatal("expected non-empty serialization")
	}
	// Round trip check: parsing the serialization back must give an Equal Map.
	m2, err := ParseState(s)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Equal(m2) {
		t.Fatal("parsed serialization should be Equal to the original Map")
	}
}

func TestFluentAssertRetract(t *testing.T) {
	f := Intern("Fluent_likes")
	m := Empty
	m = FluentAssert(m, f, term.Tuple(term.SymName("alice"), term.SymName("bob")))
	if !FluentHolds(m, f, term.Tuple(term.SymName("alice"), term.SymName("bob"))) {
		t.Fatal("expected fact to hold after assert")
	}
	m2 := FluentRetract(m, f, term.Tuple(term.SymName("alice"), term.SymName("bob")))
	if FluentHolds(m2, f, term.Tuple(term.SymName("alice"), term.SymName("bob"))) {
		t.Fatal("expected fact to no longer hold after retract")
	}
	// Backtracking: m (pre-retract) must still hold the fact.
	if !FluentHolds(m, f, term.Tuple(term.SymName("alice"), term.SymName("bob"))) {
		t.Fatal("retract must not mutate the prior Map")
	}
}
