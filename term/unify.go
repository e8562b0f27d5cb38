package term

// Unify attempts to unify a and b against trail t, returning the extended
// trail and true on success, or the original trail and false on failure.
// Unification never panics or errors — ill-typed comparisons (e.g. a
// feature structure against a non-feature non-variable) simply fail, per
// §4.1. This mirrors the teacher's unify(a, b *Literal) env, generalized
// from literal-argument unification to arbitrary nested terms, and from
// pointer-identity variables to age-compared ones (the teacher has no
// notion of variable age because Datalog rules are always fully renamed
// before resolution begins).
func Unify(a, b Value, t *Trail) (*Trail, bool) {
	a = Deref(a, t)
	b = Deref(b, t)

	av, aIsVar := a.AsVar()
	bv, bIsVar := b.AsVar()

	switch {
	case aIsVar && bIsVar:
		if av == bv {
			return t, true
		}
		if av.Depth <= bv.Depth {
			return t.Bind(av, b), true
		}
		return t.Bind(bv, a), true
	case aIsVar:
		return t.Bind(av, b), true
	case bIsVar:
		return t.Bind(bv, a), true
	}

	if a.Kind() != b.Kind() {
		return t, false
	}

	switch a.Kind() {
	case KindTuple:
		at, _ := a.AsTuple()
		bt, _ := b.AsTuple()
		if len(at) != len(bt) {
			return t, false
		}
		ok := true
		for i := range at {
			t, ok = Unify(at[i], bt[i], t)
			if !ok {
				return t, false
			}
		}
		return t, true
	case KindPair:
		ap, _ := a.AsPair()
		bp, _ := b.AsPair()
		t, ok := Unify(ap.Head, bp.Head, t)
		if !ok {
			return t, false
		}
		return Unify(ap.Tail, bp.Tail, t)
	case KindFeature:
		return unifyFeature(a, b, t)
	default:
		if equalConst(a, b) {
			return t, true
		}
		return t, false
	}
}

// unifyFeature implements the open-world algorithm from §4.1: for each
// feature of A present in B, unify values; collect features of A missing
// from B into a new tail structure and bind B's next to it; symmetrically
// for B's extras into A's next. No occurs check is performed, matching the
// rest of the engine.
func unifyFeature(a, b Value, t *Trail) (*Trail, bool) {
	af, _ := a.AsFeature()
	bf, _ := b.AsFeature()

	var ok bool
	aOnly := &Feature{Fields: map[Symbol]Value{}}
	bOnly := &Feature{Fields: map[Symbol]Value{}}

	for k, av := range af.Fields {
		if bv, present := bf.Fields[k]; present {
			t, ok = Unify(av, bv, t)
			if !ok {
				return t, false
			}
		} else {
			aOnly.Fields[k] = av
		}
	}
	for k, bv := range bf.Fields {
		if _, present := af.Fields[k]; !present {
			bOnly.Fields[k] = bv
		}
	}

	if len(aOnly.Fields) > 0 {
		aOnly.Next = VarRef(NewVar("_next"))
		t, ok = Unify(bf.Next, FeatureVal(aOnly), t)
		if !ok {
			return t, false
		}
	}
	if len(bOnly.Fields) > 0 {
		bOnly.Next = VarRef(NewVar("_next"))
		t, ok = Unify(af.Next, FeatureVal(bOnly), t)
		if !ok {
			return t, false
		}
	}
	return t, true
}

// Equal reports whether two resolved values are structurally equal: per
// §8, two resolved values are equal iff they unify under empty bindings
// without creating new bindings (i.e. unify succeeds and the resulting
// trail is unchanged).
func Equal(a, b Value) bool {
	t, ok := Unify(a, b, Empty)
	return ok && t == Empty
}
