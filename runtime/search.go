package runtime

import "math"

// Source is the process-wide random number source contract (spec §5
// "Random-number generation uses a single process-wide source"). It is
// just the one method weighted sampling needs, so callers can plug in
// math/rand's *rand.Rand (seedable, for deterministic tests per spec §9)
// without runtime depending on math/rand directly.
type Source interface {
	Float64() float64
}

// shuffleWeighted returns methods permuted by weighted random sampling
// without replacement, implemented via Efraimidis-Spirakis as spec §9
// prescribes: assign each item a key = U^(1/weight) for U ~ Uniform(0,1),
// then sort descending by key. Items with Weight <= 0 are treated as
// weight 1 (a zero or negative weight is a user authoring error, not
// grounds to crash method selection).
func shuffleWeighted(methods []*Method, rnd Source) []*Method {
	if rnd == nil || len(methods) < 2 {
		return methods
	}
	type keyed struct {
		m   *Method
		key float64
	}
	ks := make([]keyed, len(methods))
	for i, m := range methods {
		w := float64(m.Weight)
		if w <= 0 {
			w = 1
		}
		u := rnd.Float64()
		if u <= 0 {
			u = 1e-12
		}
		ks[i] = keyed{m: m, key: math.Pow(u, 1/w)}
	}
	// Insertion sort descending by key: method lists are small (a handful
	// of clauses per task), so this avoids pulling in sort.Slice's
	// reflection-based comparator for a handful of elements.
	for i := 1; i < len(ks); i++ {
		j := i
		for j > 0 && ks[j-1].key < ks[j].key {
			ks[j-1], ks[j] = ks[j], ks[j-1]
			j--
		}
	}
	out := make([]*Method, len(ks))
	for i, k := range ks {
		out[i] = k.m
	}
	return out
}
