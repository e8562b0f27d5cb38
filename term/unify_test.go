package term

import "testing"

func TestUnifyConstants(t *testing.T) {
	tr, ok := Unify(Int(3), Int(3), Empty)
	if !ok || tr != Empty {
		t.Fatal("equal ints should unify without new bindings")
	}
	if _, ok := Unify(Int(3), Int(4), Empty); ok {
		t.Fatal("unequal ints should not unify")
	}
}

func TestUnifyVarBindsOlder(t *testing.T) {
	x := NewVarAt("X", 0)
	y := NewVarAt("Y", 1)
	tr, ok := Unify(VarRef(x), VarRef(y), Empty)
	if !ok {
		t.Fatal("vars should unify")
	}
	// x (depth 0, older) should be bound to y (depth 1).
	if _, bound := tr.Lookup(x); !bound {
		t.Fatal("older variable should be bound")
	}
	if _, bound := tr.Lookup(y); bound {
		t.Fatal("younger variable should remain unbound")
	}
}

func TestUnifyTuple(t *testing.T) {
	x := NewVar("X")
	a := Tuple(Int(1), VarRef(x))
	b := Tuple(Int(1), Int(2))
	tr, ok := Unify(a, b, Empty)
	if !ok {
		t.Fatal("tuples should unify")
	}
	got, _ := tr.Lookup(x)
	if v, _ := got.AsInt(); v != 2 {
		t.Fatalf("expected X=2, got %v", got)
	}
}

func TestUnifyTupleArityMismatch(t *testing.T) {
	if _, ok := Unify(Tuple(Int(1)), Tuple(Int(1), Int(2)), Empty); ok {
		t.Fatal("tuples of different arity should not unify")
	}
}

func TestUnifyPairDifferenceList(t *testing.T) {
	tail := NewVar("Tail")
	a := Cons(Int(1), Cons(Int(2), VarRef(tail)))
	b := Cons(Int(1), Cons(Int(2), Null))
	tr, ok := Unify(a, b, Empty)
	if !ok {
		t.Fatal("difference list should unify with closed list")
	}
	got, _ := tr.Lookup(tail)
	if !got.IsNull() {
		t.Fatalf("expected Tail=null, got %v", got)
	}
}

func TestResolveCompressPairs(t *testing.T) {
	lst := Cons(Int(1), Cons(Int(2), Null))
	resolved := Resolve(lst, Empty, true)
	elems, ok := resolved.AsTuple()
	if !ok || len(elems) != 2 {
		t.Fatalf("expected compressed tuple of 2, got %v", resolved)
	}
}

func TestUnifyFeatureOpenWorld(t *testing.T) {
	a := NewFeature()
	a.Fields[Intern("name")] = Str("alice")
	b := NewFeature()
	b.Fields[Intern("age")] = Int(30)

	tr, ok := Unify(FeatureVal(a), FeatureVal(b), Empty)
	if !ok {
		t.Fatal("feature structures should unify")
	}
	// b.Next should now carry "name", a.Next should carry "age".
	bNext := Deref(b.Next, tr)
	bf, ok := bNext.AsFeature()
	if !ok {
		t.Fatalf("expected b.Next bound to feature, got %v", bNext)
	}
	if _, has := bf.Fields[Intern("name")]; !has {
		t.Fatal("b.Next should carry a's extra field")
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Tuple(Int(1), Str("x")), Tuple(Int(1), Str("x"))) {
		t.Fatal("identical tuples should be Equal")
	}
	x := NewVar("X")
	if Equal(VarRef(x), Int(1)) {
		t.Fatal("unifying an unbound var creates a binding, so Equal must be false")
	}
}
