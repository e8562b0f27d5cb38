package prim

import (
	"github.com/ianhorswill/step/runtime"
	"github.com/ianhorswill/step/term"
)

// HeadTailTask implements `[HeadTail L H T]`: L unifies with Cons(H, T),
// usable in either direction (deconstructing a ground list or constructing
// one from H/T) exactly like a Prolog `[H|T] = L` unification.
var HeadTailTask = runtime.NewPrimitive("HeadTail", 3, runtime.Flags{Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	cons := term.Cons(args[1], args[2])
	trail, ok := term.Unify(args[0], cons, env.Trail)
	if !ok {
		return false
	}
	return k(out, trail, env.State, env.Frame)
})

// LengthTask implements `[Length L N]`: binds N to the number of elements
// in the proper list L.
var LengthTask = runtime.NewPrimitive("Length", 2, runtime.Flags{Function: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	lst := term.Resolve(args[0], env.Trail, false)
	n := 0
	cur := lst
	for {
		p, ok := cur.AsPair()
		if !ok {
			break
		}
		n++
		cur = p.Tail
	}
	if !cur.IsNull() {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "Length: argument is not a proper list")
	}
	trail, ok := term.Unify(args[1], term.Int(int32(n)), env.Trail)
	if !ok {
		return false
	}
	return k(out, trail, env.State, env.Frame)
})

// MemberTask implements `[Member X L]` as a generator: succeeds once per
// element of L that unifies with X, offering further elements on backtrack.
var MemberTask = runtime.NewPrimitive("Member", 2, runtime.Flags{Generator: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	cur := term.Deref(args[1], env.Trail)
	for {
		p, ok := cur.AsPair()
		if !ok {
			return false
		}
		trail, ok := term.Unify(args[0], p.Head, env.Trail)
		if ok && k(out, trail, env.State, env.Frame) {
			return true
		}
		cur = term.Deref(p.Tail, env.Trail)
	}
})

// FeatureGetTask implements `[FeatureGet F Name V]`: looks up Name in
// feature structure F (following F's open "next" chain), binding V.
var FeatureGetTask = runtime.NewPrimitive("FeatureGet", 3, runtime.Flags{Function: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	f := term.Deref(args[0], env.Trail)
	nameV := term.Deref(args[1], env.Trail)
	name, ok := nameV.AsSymbol()
	if !ok {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "FeatureGet: name argument must be a symbol")
	}
	for {
		feat, ok := f.AsFeature()
		if !ok {
			return false
		}
		if v, present := feat.Fields[name]; present {
			trail, unifyOK := term.Unify(args[2], v, env.Trail)
			if !unifyOK {
				return false
			}
			return k(out, trail, env.State, env.Frame)
		}
		f = term.Deref(feat.Next, env.Trail)
	}
})

// FeatureSetTask implements `[FeatureSet F Name V Result]`: binds Result to
// a feature structure identical to F but with Name set to V — immutable
// update, never mutating F's map in place, so a Feature reachable from an
// ancestor choice point's bindings is unaffected.
var FeatureSetTask = runtime.NewPrimitive("FeatureSet", 4, runtime.Flags{Function: true, Fallible: true}, func(args []term.Value, out *runtime.Output, env *runtime.Env, k runtime.Cont) bool {
	f := term.Resolve(args[0], env.Trail, false)
	feat, ok := f.AsFeature()
	if !ok {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "FeatureSet: first argument is not a feature structure")
	}
	nameV := term.Deref(args[1], env.Trail)
	name, ok := nameV.AsSymbol()
	if !ok {
		runtime.Raise(runtime.KindArgumentType, env.Frame, "FeatureSet: name argument must be a symbol")
	}
	out2 := term.NewFeature()
	for k2, v2 := range feat.Fields {
		out2.Fields[k2] = v2
	}
	out2.Fields[name] = args[2]
	out2.Next = feat.Next
	trail, unifyOK := term.Unify(args[3], term.FeatureVal(out2), env.Trail)
	if !unifyOK {
		return false
	}
	return k(out, trail, env.State, env.Frame)
})
