package term

// Trail is the binding list described by spec §3/§4.1: an immutable
// singly-linked list of (variable, value) entries chained back to a parent.
// A choice point captures a *Trail pointer; restoring on backtrack is just
// reverting to that pointer, since entries are never mutated once linked.
type Trail struct {
	v      *Var
	val    Value
	parent *Trail
}

// Empty is the trail with no bindings — the starting point for a fresh
// top-level call.
var Empty *Trail

// Lookup walks the trail from newest to oldest looking for v's binding.
func (t *Trail) Lookup(v *Var) (Value, bool) {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.v == v {
			return cur.val, true
		}
	}
	return Value{}, false
}

// Bind prepends a new (v, val) entry, returning the extended trail. The
// receiver is untouched, so any choice point still holding the old trail
// pointer sees the pre-bind state — this is the whole backtracking trick.
func (t *Trail) Bind(v *Var, val Value) *Trail {
	return &Trail{v: v, val: val, parent: t}
}

// Deref follows variable -> value chains until a non-variable or an unbound
// variable is reached. It does not recurse into tuple/pair/feature
// structure — see Resolve for that.
func Deref(val Value, t *Trail) Value {
	for {
		v, ok := val.AsVar()
		if !ok {
			return val
		}
		bound, ok := t.Lookup(v)
		if !ok {
			return val
		}
		val = bound
	}
}

// resolveDepthLimit guards Resolve against cyclic terms a buggy or
// adversarial caller constructed directly (not reachable through Unify,
// which never introduces cycles, but the public Value constructors allow
// it). See spec §9 "Cyclic term avoidance".
const resolveDepthLimit = 10000

// Resolve walks a term, replacing every variable with its binding,
// recursively, until reaching ground structure or an unbound variable. If
// compressPairs is true, a Cons-chain terminated by Null is flattened into
// a Tuple for printing, matching the teacher's distinction between
// structural pair representation and printed form.
func Resolve(val Value, t *Trail, compressPairs bool) Value {
	return resolveDepth(val, t, compressPairs, 0)
}

func resolveDepth(val Value, t *Trail, compressPairs bool, depth int) Value {
	if depth > resolveDepthLimit {
		return val
	}
	val = Deref(val, t)
	switch val.Kind() {
	case KindTuple:
		elems, _ := val.AsTuple()
		out := make([]Value, len(elems))
		for i, e := range elems {
			out[i] = resolveDepth(e, t, compressPairs, depth+1)
		}
		return Tuple(out...)
	case KindPair:
		p, _ := val.AsPair()
		head := resolveDepth(p.Head, t, compressPairs, depth+1)
		tail := resolveDepth(p.Tail, t, compressPairs, depth+1)
		if !compressPairs {
			return Cons(head, tail)
		}
		elems := []Value{head}
		cur := tail
		for {
			cp, ok := cur.AsPair()
			if !ok {
				break
			}
			elems = append(elems, resolveDepth(cp.Head, t, compressPairs, depth+1))
			cur = resolveDepth(cp.Tail, t, compressPairs, depth+1)
		}
		if cur.IsNull() {
			return Tuple(elems...)
		}
		// Improper tail (e.g. unbound variable): keep cons form for the
		// unresolved remainder so the distinction is still visible.
		result := cur
		for i := len(elems) - 1; i >= 0; i-- {
			result = Cons(elems[i], result)
		}
		return result
	case KindFeature:
		f, _ := val.AsFeature()
		out := &Feature{Fields: make(map[Symbol]Value, len(f.Fields))}
		for k, v := range f.Fields {
			out.Fields[k] = resolveDepth(v, t, compressPairs, depth+1)
		}
		out.Next = resolveDepth(f.Next, t, compressPairs, depth+1)
		return FeatureVal(out)
	default:
		return val
	}
}
