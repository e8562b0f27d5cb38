package state

import "github.com/ianhorswill/step/term"

// Fluent access implements spec §3's "a 'fluent' predicate is represented
// as a state element holding a set/map" and §4.5's `now [P args]` which
// asserts or retracts facts for it. The fluent's extension is stored as a
// term.Hashtable value keyed by the fact's argument tuple, mapping to
// term.Bool(true) — a set encoded as a map, matching how the teacher
// represents a DBPred's database as a flat slice of clauses that Assert and
// Retract mutate by rebuilding.
//
// FluentAssert and FluentRetract both return a new Map (transactional,
// per §4.5 "All assignments are transactional under backtracking"), and
// never mutate an existing Hashtable value in place — a Hashtable found by
// Get is always copied before changes, since it may be shared with an
// ancestor choice point's State.
func FluentAssert(m *Map, e *Element, args term.Value) *Map {
	cur, err := m.Get(e)
	var h *term.Hashtable
	if err == nil {
		if existing, ok := cur.AsHashtable(); ok {
			h = copyHashtable(existing)
		}
	}
	if h == nil {
		h = term.NewHashtable()
	}
	h.Set(args, term.Bool(true))
	return m.Set(e, term.HashVal(h))
}

func FluentRetract(m *Map, e *Element, args term.Value) *Map {
	cur, err := m.Get(e)
	if err != nil {
		return m
	}
	existing, ok := cur.AsHashtable()
	if !ok {
		return m
	}
	h := copyHashtable(existing)
	h.Delete(args)
	return m.Set(e, term.HashVal(h))
}

// FluentHolds reports whether args is currently asserted in the fluent held
// by element e.
func FluentHolds(m *Map, e *Element, args term.Value) bool {
	cur, err := m.Get(e)
	if err != nil {
		return false
	}
	h, ok := cur.AsHashtable()
	if !ok {
		return false
	}
	_, present := h.Get(args)
	return present
}

func copyHashtable(h *term.Hashtable) *term.Hashtable {
	return h.Clone()
}
